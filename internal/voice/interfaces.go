package voice

import (
	"context"
	"errors"
)

// Essential-stage failures: each aborts the reply request that hit it.
var (
	ErrTranscription = errors.New("transcription failed")
	ErrSynthesis     = errors.New("speech synthesis failed")
	ErrViseme        = errors.New("viseme extraction failed")
)

// Transcriber converts user audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Synthesizer renders reply text as an audio artifact inside the session's
// audio workspace and returns the artifact path.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (string, error)
}

// Lipsync is the timed mouth-shape sequence derived from synthesized audio,
// in the rhubarb JSON shape the animation frontend consumes directly.
type Lipsync struct {
	Metadata  LipsyncMetadata `json:"metadata"`
	MouthCues []MouthCue      `json:"mouthCues"`
}

type LipsyncMetadata struct {
	SoundFile string  `json:"soundFile"`
	Duration  float64 `json:"duration"`
}

type MouthCue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Value string  `json:"value"`
}

// VisemeExtractor derives a timed viseme sequence from an audio artifact.
type VisemeExtractor interface {
	ExtractVisemes(ctx context.Context, audioPath string) (Lipsync, error)
}
