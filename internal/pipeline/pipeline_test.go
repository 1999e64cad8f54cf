package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/davigres/alma/internal/audio"
	"github.com/davigres/alma/internal/brain"
	"github.com/davigres/alma/internal/mood"
	"github.com/davigres/alma/internal/session"
	"github.com/davigres/alma/internal/store"
	"github.com/davigres/alma/internal/summarizer"
	"github.com/davigres/alma/internal/voice"
)

type testHarness struct {
	engine      *Engine
	store       *store.InMemoryStore
	guardian    *session.Guardian
	generator   *brain.MockGenerator
	classifier  *mood.MockClassifier
	transcriber *voice.MockTranscriber
	synthesizer *voice.MockSynthesizer
	visemes     *voice.MockVisemeExtractor
	workspace   *audio.Workspace
}

func newHarness(t *testing.T, mutate func(*Options)) *testHarness {
	t.Helper()

	st := store.NewInMemoryStore()
	ws, err := audio.NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}
	guardian := session.NewGuardian(time.Minute)
	guardian.SetWipeHook(func(string) {
		_ = st.Wipe(context.Background())
		_ = ws.Clear()
	})

	h := &testHarness{
		store:       st,
		guardian:    guardian,
		generator:   brain.NewMockGenerator(),
		classifier:  mood.NewMockClassifier(),
		transcriber: voice.NewMockTranscriber(),
		synthesizer: voice.NewMockSynthesizer(ws),
		visemes:     voice.NewMockVisemeExtractor(),
		workspace:   ws,
	}
	opts := Options{
		Store:       st,
		Guardian:    guardian,
		Generator:   h.generator,
		Classifier:  h.classifier,
		Transcriber: h.transcriber,
		Synthesizer: h.synthesizer,
		Visemes:     h.visemes,
		Workspace:   ws,
		VoiceID:     "voz-prueba",
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.engine = NewEngine(opts)
	return h
}

func TestReplyHappyPathAssemblesMessage(t *testing.T) {
	h := newHarness(t, nil)
	h.classifier.SentimentLabel = "negative"
	h.classifier.EmotionLabel = "sadness"
	h.generator.Reply = "Siento que haya sido un día duro. Estoy contigo."

	res, err := h.engine.Reply(context.Background(), Input{Message: "tengo un mal día"})
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if res.SessionExpired {
		t.Fatalf("SessionExpired = true on active session")
	}
	if res.SentimentLabel != "negative" || res.ReplyEmotionLabel != "sadness" {
		t.Fatalf("labels = %q/%q", res.SentimentLabel, res.ReplyEmotionLabel)
	}
	if len(res.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(res.Messages))
	}
	msg := res.Messages[0]
	if msg.Text != "Siento que haya sido un día duro. Estoy contigo." {
		t.Fatalf("Text = %q", msg.Text)
	}
	if msg.FacialExpression != "sad" {
		t.Fatalf("FacialExpression = %q, want sad", msg.FacialExpression)
	}
	if msg.Animation != "Talking_1" {
		t.Fatalf("Animation = %q, want Talking_1 for first turn", msg.Animation)
	}
	if msg.Audio == "" {
		t.Fatalf("Audio not attached")
	}
	if msg.Lipsync == nil || len(msg.Lipsync.MouthCues) == 0 {
		t.Fatalf("Lipsync missing mouth cues")
	}

	turns, err := h.store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(turns) != 1 || turns[0].Index != 1 {
		t.Fatalf("turns = %+v, want one turn with index 1", turns)
	}
	if turns[0].UserUtterance != "tengo un mal día" || turns[0].ReplyText != msg.Text {
		t.Fatalf("persisted turn = %+v", turns[0])
	}
}

func TestReplyClassifierFailureDegradesToDefaults(t *testing.T) {
	h := newHarness(t, nil)
	h.classifier.SentimentErr = errors.New("classifier down")
	h.classifier.EmotionErr = errors.New("classifier down")

	res, err := h.engine.Reply(context.Background(), Input{Message: "tengo un mal día"})
	if err != nil {
		t.Fatalf("Reply() error = %v, optional failures must not abort", err)
	}
	if res.SentimentLabel != mood.DefaultSentiment {
		t.Fatalf("SentimentLabel = %q, want %q", res.SentimentLabel, mood.DefaultSentiment)
	}
	if res.ReplyEmotionLabel != mood.DefaultEmotion {
		t.Fatalf("ReplyEmotionLabel = %q, want %q", res.ReplyEmotionLabel, mood.DefaultEmotion)
	}
	if res.Messages[0].FacialExpression != "default" {
		t.Fatalf("FacialExpression = %q, want default", res.Messages[0].FacialExpression)
	}
	if res.Messages[0].Text == "" {
		t.Fatalf("reply text empty despite degraded classification")
	}
	if h.generator.Calls() != 1 {
		t.Fatalf("generator calls = %d, want 1", h.generator.Calls())
	}

	turns, _ := h.store.LoadAll(context.Background())
	if len(turns) != 1 || turns[0].SentimentLabel != "neutral" || turns[0].ReplyEmotionLabel != "default" {
		t.Fatalf("persisted turn = %+v, want default labels", turns)
	}
}

func TestReplyAnimationRotatesWithTurnIndex(t *testing.T) {
	h := newHarness(t, nil)
	want := []string{"Talking_1", "Talking_2", "Talking_0"}
	for i, anim := range want {
		res, err := h.engine.Reply(context.Background(), Input{Message: "sigo aquí"})
		if err != nil {
			t.Fatalf("Reply() #%d error = %v", i+1, err)
		}
		if got := res.Messages[0].Animation; got != anim {
			t.Fatalf("turn %d animation = %q, want %q", i+1, got, anim)
		}
	}

	turns, _ := h.store.LoadAll(context.Background())
	for i, turn := range turns {
		if turn.Index != i+1 {
			t.Fatalf("turn indices not dense: %+v", turns)
		}
	}
}

func TestReplyGenerationFailureAbortsWithoutPersisting(t *testing.T) {
	h := newHarness(t, nil)
	h.generator.Err = errors.New("model unavailable")

	_, err := h.engine.Reply(context.Background(), Input{Message: "hola"})
	if !errors.Is(err, brain.ErrGeneration) {
		t.Fatalf("Reply() error = %v, want ErrGeneration", err)
	}
	if h.synthesizer.Calls() != 0 {
		t.Fatalf("synthesizer called after generation failure")
	}
	turns, _ := h.store.LoadAll(context.Background())
	if len(turns) != 0 {
		t.Fatalf("turns persisted after aborted reply: %+v", turns)
	}
}

func TestReplySynthesisFailureAbortsWithoutPersisting(t *testing.T) {
	h := newHarness(t, nil)
	h.synthesizer.Err = errors.New("tts unavailable")

	_, err := h.engine.Reply(context.Background(), Input{Message: "hola"})
	if !errors.Is(err, voice.ErrSynthesis) {
		t.Fatalf("Reply() error = %v, want ErrSynthesis", err)
	}
	turns, _ := h.store.LoadAll(context.Background())
	if len(turns) != 0 {
		t.Fatalf("turns persisted after synthesis failure: %+v", turns)
	}
}

func TestReplyVisemeFailureAbortsWithoutPersisting(t *testing.T) {
	h := newHarness(t, nil)
	h.visemes.Err = errors.New("rhubarb crashed")

	_, err := h.engine.Reply(context.Background(), Input{Message: "hola"})
	if !errors.Is(err, voice.ErrViseme) {
		t.Fatalf("Reply() error = %v, want ErrViseme", err)
	}
	turns, _ := h.store.LoadAll(context.Background())
	if len(turns) != 0 {
		t.Fatalf("turns persisted after viseme failure: %+v", turns)
	}
}

func TestReplyAudioInputGoesThroughTranscription(t *testing.T) {
	h := newHarness(t, nil)
	h.transcriber.Text = "hoy me fue muy bien"

	res, err := h.engine.Reply(context.Background(), Input{Audio: []byte{0x01, 0x02}, MimeType: "audio/webm"})
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if res.Transcript != "hoy me fue muy bien" {
		t.Fatalf("Transcript = %q", res.Transcript)
	}
	if h.transcriber.Calls() != 1 {
		t.Fatalf("transcriber calls = %d, want 1", h.transcriber.Calls())
	}
	if !strings.Contains(h.generator.LastUserPayload(), "hoy me fue muy bien") {
		t.Fatalf("transcript missing from generation payload: %q", h.generator.LastUserPayload())
	}
}

func TestReplyTranscriptionFailureAborts(t *testing.T) {
	h := newHarness(t, nil)
	h.transcriber.Err = errors.New("upload rejected")

	_, err := h.engine.Reply(context.Background(), Input{Audio: []byte{0x01}, MimeType: "audio/webm"})
	if !errors.Is(err, voice.ErrTranscription) {
		t.Fatalf("Reply() error = %v, want ErrTranscription", err)
	}
	if h.generator.Calls() != 0 {
		t.Fatalf("generator ran after transcription failure")
	}
}

func TestReplyEmptyInputProducesGreeting(t *testing.T) {
	h := newHarness(t, nil)

	res, err := h.engine.Reply(context.Background(), Input{Message: "   "})
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if res.Messages[0].Text != greetingText {
		t.Fatalf("Text = %q, want greeting", res.Messages[0].Text)
	}
	if h.generator.Calls() != 0 || h.classifier.SentimentCalls() != 0 {
		t.Fatalf("generation or classification ran for empty input")
	}
	if res.Messages[0].Audio == "" || res.Messages[0].Lipsync == nil {
		t.Fatalf("greeting not spoken: %+v", res.Messages[0])
	}

	// The greeting is a real turn so indices stay dense.
	turns, _ := h.store.LoadAll(context.Background())
	if len(turns) != 1 || turns[0].ReplyText != greetingText {
		t.Fatalf("greeting turn not persisted: %+v", turns)
	}
}

func TestReplyExpiredSessionShortCircuitsThenRecovers(t *testing.T) {
	st := store.NewInMemoryStore()
	seedCtx := context.Background()
	if _, err := st.Append(seedCtx, store.Turn{UserUtterance: "anterior", ReplyText: "respuesta"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	guardian := session.NewGuardian(15 * time.Millisecond)
	guardian.SetWipeHook(func(string) { _ = st.Wipe(context.Background()) })

	ws, err := audio.NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}
	gen := brain.NewMockGenerator()
	engine := NewEngine(Options{
		Store:       st,
		Guardian:    guardian,
		Generator:   gen,
		Classifier:  mood.NewMockClassifier(),
		Transcriber: voice.NewMockTranscriber(),
		Synthesizer: voice.NewMockSynthesizer(ws),
		Visemes:     voice.NewMockVisemeExtractor(),
		Workspace:   ws,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	guardian.StartWatchdog(ctx, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	if !guardian.Expired() {
		t.Fatalf("session not expired after inactivity window")
	}

	res, err := engine.Reply(context.Background(), Input{Message: "sigo aquí"})
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if !res.SessionExpired {
		t.Fatalf("SessionExpired = false on expired session")
	}
	if len(res.Messages) != 0 {
		t.Fatalf("expired short circuit produced a reply: %+v", res.Messages)
	}
	if gen.Calls() != 0 {
		t.Fatalf("generator ran during expired short circuit")
	}
	turns, _ := st.LoadAll(context.Background())
	if len(turns) != 0 {
		t.Fatalf("wipe not confirmed: %+v", turns)
	}

	// The next request runs normally on the fresh session.
	res, err = engine.Reply(context.Background(), Input{Message: "empecemos de nuevo"})
	if err != nil {
		t.Fatalf("Reply() after recovery error = %v", err)
	}
	if res.SessionExpired {
		t.Fatalf("session still expired after recovery turn")
	}
	if res.Messages[0].Animation != "Talking_1" {
		t.Fatalf("recovery animation = %q, want Talking_1 from index 1", res.Messages[0].Animation)
	}
}

func TestReplyMissingCredentialsDegradesWithoutPersisting(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.MissingCredentials = []string{"OPENAI_API_KEY", "ELEVENLABS_API_KEY"}
	})

	res, err := h.engine.Reply(context.Background(), Input{Message: "hola"})
	if err != nil {
		t.Fatalf("Reply() error = %v, degraded mode must answer", err)
	}
	if len(res.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(res.Messages))
	}
	if !strings.Contains(res.Messages[0].Text, "OPENAI_API_KEY") {
		t.Fatalf("degraded reply does not name the missing variable: %q", res.Messages[0].Text)
	}
	if res.Messages[0].FacialExpression != "default" || res.Messages[0].Animation != "Talking_0" {
		t.Fatalf("degraded visuals = %q/%q", res.Messages[0].FacialExpression, res.Messages[0].Animation)
	}
	if h.generator.Calls() != 0 {
		t.Fatalf("generator called in degraded mode")
	}
	turns, _ := h.store.LoadAll(context.Background())
	if len(turns) != 0 {
		t.Fatalf("degraded reply persisted: %+v", turns)
	}
}

func TestReplyRunsSummarizerAfterPersist(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		// Tiny threshold so the first turn already crosses it. The summarizer
		// shares the pipeline's generator.
		o.Summarizer = summarizer.New(o.Store, o.Generator, 10)
	})
	h.generator.Reply = "Una respuesta que también sirve de resumen."

	if _, err := h.engine.Reply(context.Background(), Input{Message: "cuéntame algo"}); err != nil {
		t.Fatalf("Reply() error = %v", err)
	}

	rec, err := h.store.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if rec.AbstractText == "" || rec.CoveredTurnCount != 1 {
		t.Fatalf("summary record = %+v, want abstract covering 1 turn", rec)
	}
	// One generation for the reply, one for the compaction.
	if h.generator.Calls() != 2 {
		t.Fatalf("generator calls = %d, want 2", h.generator.Calls())
	}
}
