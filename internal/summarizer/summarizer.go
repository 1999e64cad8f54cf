package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/davigres/alma/internal/brain"
	"github.com/davigres/alma/internal/store"
)

// DefaultThresholdChars is the serialized-size trigger for recomputing the
// rolling abstract.
const DefaultThresholdChars = 10000

const compactionInstruction = `Resume la conversación en un párrafo breve y fiel.
Conserva nombres, objetivos, temas sensibles y la continuidad emocional.
Escribe en español, sin listas ni símbolos decorativos.`

// Summarizer keeps the generated prompt bounded by condensing the full turn
// collection into one running abstract once it outgrows the threshold. It
// never prunes stored turns: only the prompt is bounded, not storage.
type Summarizer struct {
	store     store.Store
	generator brain.Generator
	threshold int
}

func New(st store.Store, generator brain.Generator, thresholdChars int) *Summarizer {
	if thresholdChars <= 0 {
		thresholdChars = DefaultThresholdChars
	}
	return &Summarizer{
		store:     st,
		generator: generator,
		threshold: thresholdChars,
	}
}

// MaybeSummarize recomputes the summary record when the serialized turn
// collection exceeds the threshold. It reports whether a new record was
// written. Best-effort by contract: on failure the previous record stays in
// place and the caller's reply still succeeds.
func (s *Summarizer) MaybeSummarize(ctx context.Context) (bool, error) {
	turns, err := s.store.LoadAll(ctx)
	if err != nil {
		return false, fmt.Errorf("load turns: %w", err)
	}
	serialized, err := json.Marshal(turns)
	if err != nil {
		return false, fmt.Errorf("serialize turns: %w", err)
	}
	if len(serialized) <= s.threshold {
		return false, nil
	}

	prev, err := s.store.Summary(ctx)
	if err != nil {
		return false, fmt.Errorf("load summary: %w", err)
	}

	abstract, err := s.generator.Generate(ctx, compactionInstruction, buildMaterial(prev.AbstractText, turns))
	if err != nil {
		return false, fmt.Errorf("summarize: %w", err)
	}

	rec := store.SummaryRecord{
		AbstractText:     strings.TrimSpace(abstract),
		UpdatedAt:        time.Now().UTC(),
		CoveredTurnCount: len(turns),
	}
	if err := s.store.SaveSummary(ctx, rec); err != nil {
		return false, fmt.Errorf("save summary: %w", err)
	}
	return true, nil
}

// buildMaterial concatenates the previous abstract with every turn's fields,
// each labeled by index, as the compaction input.
func buildMaterial(prevAbstract string, turns []store.Turn) string {
	var b strings.Builder
	if strings.TrimSpace(prevAbstract) != "" {
		b.WriteString("Resumen previo:\n")
		b.WriteString(strings.TrimSpace(prevAbstract))
		b.WriteString("\n\n")
	}
	for _, t := range turns {
		fmt.Fprintf(&b, "Turno %d:\n", t.Index)
		fmt.Fprintf(&b, "Usuario: %s\n", t.UserUtterance)
		fmt.Fprintf(&b, "Alma: %s\n", t.ReplyText)
		fmt.Fprintf(&b, "Sentimiento: %s / Emoción: %s\n\n", t.SentimentLabel, t.ReplyEmotionLabel)
	}
	return strings.TrimSpace(b.String())
}
