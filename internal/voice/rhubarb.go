package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// RhubarbConfig configures the lip-sync extractor. Rhubarb only accepts WAV
// (or Ogg) input, so MP3 artifacts are first converted with ffmpeg.
type RhubarbConfig struct {
	RhubarbPath string
	FFmpegPath  string
}

// RhubarbExtractor derives mouth cues from a synthesized audio artifact by
// shelling out to ffmpeg and the rhubarb CLI.
type RhubarbExtractor struct {
	cfg RhubarbConfig
}

func NewRhubarbExtractor(cfg RhubarbConfig) *RhubarbExtractor {
	if strings.TrimSpace(cfg.RhubarbPath) == "" {
		cfg.RhubarbPath = "rhubarb"
	}
	if strings.TrimSpace(cfg.FFmpegPath) == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	return &RhubarbExtractor{cfg: cfg}
}

func (e *RhubarbExtractor) ExtractVisemes(ctx context.Context, audioPath string) (Lipsync, error) {
	wavPath := audioPath
	ext := strings.ToLower(filepath.Ext(audioPath))
	if ext != ".wav" && ext != ".ogg" {
		wavPath = strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".wav"
		cmd := exec.CommandContext(ctx, e.cfg.FFmpegPath, "-y", "-i", audioPath, wavPath)
		if out, err := cmd.CombinedOutput(); err != nil {
			return Lipsync{}, fmt.Errorf("%w: ffmpeg convert: %v: %s", ErrViseme, err, tail(out))
		}
	}

	jsonPath := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".json"
	cmd := exec.CommandContext(ctx, e.cfg.RhubarbPath,
		"-f", "json",
		"-o", jsonPath,
		"-r", "phonetic",
		wavPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return Lipsync{}, fmt.Errorf("%w: rhubarb: %v: %s", ErrViseme, err, tail(out))
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return Lipsync{}, fmt.Errorf("%w: read cues: %v", ErrViseme, err)
	}
	return ParseLipsync(data)
}

// ParseLipsync decodes rhubarb's JSON output.
func ParseLipsync(data []byte) (Lipsync, error) {
	var ls Lipsync
	if err := json.Unmarshal(data, &ls); err != nil {
		return Lipsync{}, fmt.Errorf("%w: decode cues: %v", ErrViseme, err)
	}
	if len(ls.MouthCues) == 0 {
		return Lipsync{}, fmt.Errorf("%w: no mouth cues produced", ErrViseme)
	}
	return ls, nil
}

func tail(out []byte) string {
	s := strings.TrimSpace(string(out))
	const max = 512
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}
