package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/davigres/alma/internal/store"
)

// DefaultRecentWindow is the number of most-recent turns included verbatim
// in the generation context.
const DefaultRecentWindow = 6

const missingReplyPlaceholder = "(sin respuesta registrada)"

// promptContext is the bounded material handed to generation: the running
// abstract plus the last-window turns verbatim.
type promptContext struct {
	Abstract    string
	RecentTurns string
	TotalTurns  int
}

// composeContext reads the summary record and the turn collection and builds
// the generation context. Read-only, deterministic for a given session state;
// unreadable state degrades to an empty context rather than an error.
func composeContext(ctx context.Context, st store.Store, window int) promptContext {
	if window <= 0 {
		window = DefaultRecentWindow
	}

	turns, err := st.LoadAll(ctx)
	if err != nil {
		turns = nil
	}
	rec, err := st.Summary(ctx)
	if err != nil {
		rec = store.SummaryRecord{}
	}

	start := len(turns) - window
	if start < 0 {
		start = 0
	}
	var b strings.Builder
	for _, t := range turns[start:] {
		reply := strings.TrimSpace(t.ReplyText)
		if reply == "" {
			reply = missingReplyPlaceholder
		}
		fmt.Fprintf(&b, "Turno %d:\nUsuario: %s\nAlma: %s\n\n", t.Index, t.UserUtterance, reply)
	}

	return promptContext{
		Abstract:    strings.TrimSpace(rec.AbstractText),
		RecentTurns: strings.TrimSpace(b.String()),
		TotalTurns:  len(turns),
	}
}

func buildUserPayload(pc promptContext, transcript, sentimentLabel, emotionLabel string) string {
	var b strings.Builder
	if pc.Abstract != "" {
		b.WriteString("Resumen de la conversación hasta ahora:\n")
		b.WriteString(pc.Abstract)
		b.WriteString("\n\n")
	}
	if pc.RecentTurns != "" {
		b.WriteString("Últimos turnos:\n")
		b.WriteString(pc.RecentTurns)
		b.WriteString("\n\n")
	}
	b.WriteString("Mensaje actual del usuario:\n")
	b.WriteString(transcript)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Metadatos: sentimiento=%s, emoción=%s, turnos=%d\n", sentimentLabel, emotionLabel, pc.TotalTurns)
	return b.String()
}
