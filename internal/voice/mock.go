package voice

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davigres/alma/internal/audio"
)

// MockTranscriber is a scriptable transcriber for tests and keyless runs.
type MockTranscriber struct {
	mu    sync.Mutex
	Text  string
	Err   error
	calls int
}

func NewMockTranscriber() *MockTranscriber {
	return &MockTranscriber{Text: "entrada de voz simulada"}
}

func (m *MockTranscriber) Transcribe(_ context.Context, audioBytes []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return "", m.Err
	}
	if len(audioBytes) == 0 {
		return "", nil
	}
	return m.Text, nil
}

func (m *MockTranscriber) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockSynthesizer writes a short silent WAV into the workspace instead of
// calling a TTS provider.
type MockSynthesizer struct {
	mu        sync.Mutex
	workspace *audio.Workspace
	Err       error
	calls     int
}

func NewMockSynthesizer(workspace *audio.Workspace) *MockSynthesizer {
	return &MockSynthesizer{workspace: workspace}
}

func (m *MockSynthesizer) Synthesize(_ context.Context, text, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return "", m.Err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty reply text", ErrSynthesis)
	}
	wav := audio.EncodeWAVPCM16LE(audio.SilencePCM16LE(300*time.Millisecond, 16000), 16000)
	path, err := m.workspace.WriteFile(fmt.Sprintf("reply_%s.wav", uuid.NewString()), wav)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	return path, nil
}

func (m *MockSynthesizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockVisemeExtractor returns a fixed cue sequence.
type MockVisemeExtractor struct {
	mu    sync.Mutex
	Err   error
	calls int
}

func NewMockVisemeExtractor() *MockVisemeExtractor { return &MockVisemeExtractor{} }

func (m *MockVisemeExtractor) ExtractVisemes(_ context.Context, audioPath string) (Lipsync, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return Lipsync{}, m.Err
	}
	return Lipsync{
		Metadata: LipsyncMetadata{SoundFile: audioPath, Duration: 0.3},
		MouthCues: []MouthCue{
			{Start: 0.00, End: 0.10, Value: "X"},
			{Start: 0.10, End: 0.20, Value: "B"},
			{Start: 0.20, End: 0.30, Value: "A"},
		},
	}, nil
}

func (m *MockVisemeExtractor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
