package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davigres/alma/internal/audio"
)

// ElevenLabsConfig configures the TTS client.
type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	ModelID string
}

// ElevenLabsSynthesizer renders reply text through the ElevenLabs REST API
// and stores the resulting MP3 in the audio workspace.
type ElevenLabsSynthesizer struct {
	cfg       ElevenLabsConfig
	workspace *audio.Workspace
	client    *http.Client
}

func NewElevenLabsSynthesizer(cfg ElevenLabsConfig, workspace *audio.Workspace) *ElevenLabsSynthesizer {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	return &ElevenLabsSynthesizer{
		cfg:       cfg,
		workspace: workspace,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text, voiceID string) (string, error) {
	if strings.TrimSpace(voiceID) == "" {
		return "", fmt.Errorf("%w: voice id is required", ErrSynthesis)
	}

	payload, err := json.Marshal(ttsRequest{Text: text, ModelID: s.cfg.ModelID})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrSynthesis, err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", s.cfg.BaseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrSynthesis, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", s.cfg.APIKey)

	res, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: send request: %v", ErrSynthesis, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", fmt.Errorf("%w: status %d: %s", ErrSynthesis, res.StatusCode, strings.TrimSpace(string(msg)))
	}

	mp3, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read audio: %v", ErrSynthesis, err)
	}
	if len(mp3) == 0 {
		return "", fmt.Errorf("%w: empty audio payload", ErrSynthesis)
	}

	path, err := s.workspace.WriteFile(fmt.Sprintf("reply_%s.mp3", uuid.NewString()), mp3)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	return path, nil
}
