package mood

import (
	"context"
	"sync"
)

// MockClassifier is a scriptable classifier for tests and keyless local runs.
type MockClassifier struct {
	mu sync.Mutex

	SentimentLabel string
	EmotionLabel   string
	SentimentErr   error
	EmotionErr     error

	sentimentCalls int
	emotionCalls   int
}

func NewMockClassifier() *MockClassifier {
	return &MockClassifier{
		SentimentLabel: DefaultSentiment,
		EmotionLabel:   DefaultEmotion,
	}
}

func (m *MockClassifier) Sentiment(_ context.Context, _ string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentimentCalls++
	if m.SentimentErr != nil {
		return Result{Err: m.SentimentErr}
	}
	return Result{Label: m.SentimentLabel}
}

func (m *MockClassifier) ReplyEmotion(_ context.Context, _ string, _ string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emotionCalls++
	if m.EmotionErr != nil {
		return Result{Err: m.EmotionErr}
	}
	return Result{Label: m.EmotionLabel}
}

func (m *MockClassifier) SentimentCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sentimentCalls
}

func (m *MockClassifier) EmotionCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emotionCalls
}
