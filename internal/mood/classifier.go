package mood

import (
	"context"
	"errors"
	"strings"
)

// ErrClassification marks sentiment/emotion classifier failures. Both
// classifiers are optional pipeline stages: failures degrade to a default
// label and never abort the request.
var ErrClassification = errors.New("classification failed")

const (
	// DefaultSentiment is used when sentiment classification fails.
	DefaultSentiment = "neutral"
	// DefaultEmotion is used when reply-emotion prediction fails.
	DefaultEmotion = "default"
)

// Result carries a classifier label or the failure that prevented one, so
// the degrade-to-default decision is explicit at the call site.
type Result struct {
	Label string
	Err   error
}

// Or returns the label, or def when classification failed or produced
// nothing usable.
func (r Result) Or(def string) string {
	if r.Err != nil {
		return def
	}
	label := strings.ToLower(strings.TrimSpace(r.Label))
	if label == "" {
		return def
	}
	return label
}

// Classifier labels user text with a sentiment and predicts the emotion the
// persona's reply should carry.
type Classifier interface {
	Sentiment(ctx context.Context, text string) Result
	ReplyEmotion(ctx context.Context, text, sentimentLabel string) Result
}
