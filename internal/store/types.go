package store

import (
	"context"
	"time"
)

// Turn is one user-input/persona-reply exchange. Turns are immutable once
// written and are only removed by a wholesale session wipe.
type Turn struct {
	Index             int       `json:"index"`
	UserUtterance     string    `json:"user_utterance"`
	SentimentLabel    string    `json:"sentiment_label"`
	ReplyEmotionLabel string    `json:"reply_emotion_label"`
	ReplyText         string    `json:"reply_text"`
	CreatedAt         time.Time `json:"created_at"`
}

// SummaryRecord is the lossy compaction of turns older than the retained
// recency window. At most one record exists per session; it is replaced,
// never appended.
type SummaryRecord struct {
	AbstractText     string    `json:"abstract_text"`
	UpdatedAt        time.Time `json:"updated_at"`
	CoveredTurnCount int       `json:"covered_turn_count"`
}

// Store persists the turn collection and the summary record for one session.
//
// Append assigns the next dense 1-based index and persists before returning.
// LoadAll returns turns in index order; an absent or unreadable backing
// document is treated as an empty collection, never as an error.
// Wipe clears turns and the summary record and is idempotent.
type Store interface {
	Append(ctx context.Context, turn Turn) (Turn, error)
	LoadAll(ctx context.Context) ([]Turn, error)
	Summary(ctx context.Context) (SummaryRecord, error)
	SaveSummary(ctx context.Context, rec SummaryRecord) error
	Wipe(ctx context.Context) error
	Close() error
}
