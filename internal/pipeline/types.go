package pipeline

import "github.com/davigres/alma/internal/voice"

// Input is one inbound utterance, as text or audio. Audio takes precedence
// when both are present.
type Input struct {
	Message  string
	Audio    []byte
	MimeType string
}

// Message is one spoken, animated segment of a reply.
type Message struct {
	Text             string         `json:"text"`
	Audio            string         `json:"audio,omitempty"`
	Lipsync          *voice.Lipsync `json:"lipsync,omitempty"`
	FacialExpression string         `json:"facialExpression"`
	Animation        string         `json:"animation"`
}

// Result is the assembled outcome of one reply request. SessionExpired marks
// the short-circuit case where the session was wiped and no reply produced.
type Result struct {
	SessionExpired    bool      `json:"session_expired,omitempty"`
	Transcript        string    `json:"transcript"`
	SentimentLabel    string    `json:"sentiment_label"`
	ReplyEmotionLabel string    `json:"reply_emotion_label"`
	Messages          []Message `json:"messages"`
}
