package voice

import (
	"errors"
	"testing"
)

func TestParseLipsync(t *testing.T) {
	data := []byte(`{
		"metadata": {"soundFile": "reply_1.wav", "duration": 1.25},
		"mouthCues": [
			{"start": 0.00, "end": 0.35, "value": "X"},
			{"start": 0.35, "end": 0.80, "value": "B"},
			{"start": 0.80, "end": 1.25, "value": "A"}
		]
	}`)

	ls, err := ParseLipsync(data)
	if err != nil {
		t.Fatalf("ParseLipsync() error = %v", err)
	}
	if ls.Metadata.Duration != 1.25 {
		t.Fatalf("Duration = %v, want 1.25", ls.Metadata.Duration)
	}
	if len(ls.MouthCues) != 3 {
		t.Fatalf("len(MouthCues) = %d, want 3", len(ls.MouthCues))
	}
	if ls.MouthCues[1].Value != "B" || ls.MouthCues[1].Start != 0.35 {
		t.Fatalf("unexpected cue: %+v", ls.MouthCues[1])
	}
}

func TestParseLipsyncRejectsBadPayloads(t *testing.T) {
	for _, data := range []string{`not json`, `{"metadata":{},"mouthCues":[]}`} {
		if _, err := ParseLipsync([]byte(data)); !errors.Is(err, ErrViseme) {
			t.Errorf("ParseLipsync(%q) error = %v, want ErrViseme", data, err)
		}
	}
}
