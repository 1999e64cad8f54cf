package mood

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClassifier talks to a small inference service exposing /sentiment and
// /emotion endpoints, each returning {"label": "..."}.
type HTTPClassifier struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClassifier(baseURL string) *HTTPClassifier {
	return &HTTPClassifier{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type classifyRequest struct {
	Text      string `json:"text"`
	Sentiment string `json:"sentiment,omitempty"`
}

type classifyResponse struct {
	Label string `json:"label"`
}

func (c *HTTPClassifier) Sentiment(ctx context.Context, text string) Result {
	return c.call(ctx, "/sentiment", classifyRequest{Text: text})
}

func (c *HTTPClassifier) ReplyEmotion(ctx context.Context, text, sentimentLabel string) Result {
	return c.call(ctx, "/emotion", classifyRequest{Text: text, Sentiment: sentimentLabel})
}

func (c *HTTPClassifier) call(ctx context.Context, path string, body classifyRequest) Result {
	if c.baseURL == "" {
		return Result{Err: fmt.Errorf("%w: classifier endpoint not configured", ErrClassification)}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Result{Err: fmt.Errorf("%w: marshal request: %v", ErrClassification, err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return Result{Err: fmt.Errorf("%w: create request: %v", ErrClassification, err)}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return Result{Err: fmt.Errorf("%w: send request: %v", ErrClassification, err)}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return Result{Err: fmt.Errorf("%w: %s status %d: %s", ErrClassification, path, res.StatusCode, strings.TrimSpace(string(msg)))}
	}

	var parsed classifyResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return Result{Err: fmt.Errorf("%w: decode response: %v", ErrClassification, err)}
	}
	return Result{Label: parsed.Label}
}
