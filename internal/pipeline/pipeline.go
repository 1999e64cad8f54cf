package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/davigres/alma/internal/audio"
	"github.com/davigres/alma/internal/avatar"
	"github.com/davigres/alma/internal/brain"
	"github.com/davigres/alma/internal/mood"
	"github.com/davigres/alma/internal/observability"
	"github.com/davigres/alma/internal/session"
	"github.com/davigres/alma/internal/store"
	"github.com/davigres/alma/internal/summarizer"
	"github.com/davigres/alma/internal/voice"
)

const systemInstruction = `Eres Alma, una compañera virtual cálida y empática.
Respondes siempre en español, en 2 a 4 frases breves.
Acompañas y escuchas; nunca das consejos clínicos ni diagnósticos.
No uses emojis ni símbolos decorativos.`

const greetingText = "Hola, qué alegría tenerte aquí. ¿Cómo ha ido tu día?"

// Options wires the engine's collaborators and session state.
type Options struct {
	Store       store.Store
	Guardian    *session.Guardian
	Generator   brain.Generator
	Classifier  mood.Classifier
	Transcriber voice.Transcriber
	Synthesizer voice.Synthesizer
	Visemes     voice.VisemeExtractor
	Workspace   *audio.Workspace
	Summarizer  *summarizer.Summarizer
	Metrics     *observability.Metrics

	VoiceID      string
	RecentWindow int

	// MissingCredentials lists unconfigured essential collaborators. When
	// non-empty every reply degrades to an explanatory message instead of
	// failing the request.
	MissingCredentials []string
}

// Engine runs the per-request reply pipeline against one explicit session.
// Stages execute strictly sequentially; the guardian's gate guarantees at
// most one pipeline run is in flight.
type Engine struct {
	store       store.Store
	guardian    *session.Guardian
	generator   brain.Generator
	classifier  mood.Classifier
	transcriber voice.Transcriber
	synthesizer voice.Synthesizer
	visemes     voice.VisemeExtractor
	workspace   *audio.Workspace
	summarizer  *summarizer.Summarizer
	metrics     *observability.Metrics

	voiceID      string
	recentWindow int
	missing      []string
}

func NewEngine(opts Options) *Engine {
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = DefaultRecentWindow
	}
	return &Engine{
		store:        opts.Store,
		guardian:     opts.Guardian,
		generator:    opts.Generator,
		classifier:   opts.Classifier,
		transcriber:  opts.Transcriber,
		synthesizer:  opts.Synthesizer,
		visemes:      opts.Visemes,
		workspace:    opts.Workspace,
		summarizer:   opts.Summarizer,
		metrics:      opts.Metrics,
		voiceID:      opts.VoiceID,
		recentWindow: opts.RecentWindow,
		missing:      opts.MissingCredentials,
	}
}

// Reply runs one utterance through the pipeline under the session gate. An
// expired session gets its wipe confirmed and a session-expired result; the
// pipeline does not run in that state.
func (e *Engine) Reply(ctx context.Context, in Input) (Result, error) {
	var (
		res Result
		err error
	)
	expired := e.guardian.RunReply(func() {
		res, err = e.runPipeline(ctx, in)
	})
	if expired {
		e.metrics.IncSessionEvent("expired_short_circuit")
		return Result{SessionExpired: true}, nil
	}
	return res, err
}

func (e *Engine) runPipeline(ctx context.Context, in Input) (Result, error) {
	if len(e.missing) > 0 {
		e.metrics.IncSessionEvent("degraded_reply")
		return e.degradedResult(), nil
	}

	transcript, err := e.resolveTranscript(ctx, in)
	if err != nil {
		return Result{}, err
	}

	pc := composeContext(ctx, e.store, e.recentWindow)
	nextIndex := pc.TotalTurns + 1

	var sentimentLabel, emotionLabel, replyText string
	if transcript == "" {
		// No utterance: canned greeting, no classification or generation.
		sentimentLabel = mood.DefaultSentiment
		emotionLabel = mood.DefaultEmotion
		replyText = greetingText
	} else {
		sentimentLabel, emotionLabel = e.classify(ctx, transcript)
		replyText, err = e.generate(ctx, pc, transcript, sentimentLabel, emotionLabel)
		if err != nil {
			return Result{}, err
		}
	}

	expression := avatar.ExpressionFor(emotionLabel)
	animation := avatar.AnimationFor(nextIndex)

	audioB64, lipsync, err := e.speak(ctx, replyText)
	if err != nil {
		return Result{}, err
	}

	if err := e.persist(ctx, transcript, sentimentLabel, emotionLabel, replyText); err != nil {
		return Result{}, err
	}
	e.summarize(ctx)
	e.metrics.IncTurns()

	return Result{
		Transcript:        transcript,
		SentimentLabel:    sentimentLabel,
		ReplyEmotionLabel: emotionLabel,
		Messages: []Message{{
			Text:             replyText,
			Audio:            audioB64,
			Lipsync:          &lipsync,
			FacialExpression: expression,
			Animation:        animation,
		}},
	}, nil
}

func (e *Engine) resolveTranscript(ctx context.Context, in Input) (string, error) {
	if len(in.Audio) == 0 {
		return strings.TrimSpace(in.Message), nil
	}
	start := time.Now()
	text, err := e.transcriber.Transcribe(ctx, in.Audio, in.MimeType)
	e.metrics.ObserveStage("transcription", time.Since(start))
	if err != nil {
		e.metrics.IncStageError("transcription", "essential")
		return "", wrapStage(voice.ErrTranscription, err)
	}
	return strings.TrimSpace(text), nil
}

func (e *Engine) classify(ctx context.Context, transcript string) (sentimentLabel, emotionLabel string) {
	start := time.Now()
	sres := e.classifier.Sentiment(ctx, transcript)
	e.metrics.ObserveStage("sentiment", time.Since(start))
	if sres.Err != nil {
		e.metrics.IncStageError("sentiment", "optional")
		log.Printf("sentiment classification degraded: %v", sres.Err)
	}
	sentimentLabel = sres.Or(mood.DefaultSentiment)

	start = time.Now()
	eres := e.classifier.ReplyEmotion(ctx, transcript, sentimentLabel)
	e.metrics.ObserveStage("emotion", time.Since(start))
	if eres.Err != nil {
		e.metrics.IncStageError("emotion", "optional")
		log.Printf("emotion prediction degraded: %v", eres.Err)
	}
	return sentimentLabel, eres.Or(mood.DefaultEmotion)
}

func (e *Engine) generate(ctx context.Context, pc promptContext, transcript, sentimentLabel, emotionLabel string) (string, error) {
	start := time.Now()
	text, err := e.generator.Generate(ctx, systemInstruction, buildUserPayload(pc, transcript, sentimentLabel, emotionLabel))
	e.metrics.ObserveStage("generation", time.Since(start))
	if err != nil {
		e.metrics.IncStageError("generation", "essential")
		return "", wrapStage(brain.ErrGeneration, err)
	}
	return strings.TrimSpace(text), nil
}

// speak synthesizes the reply, derives its viseme sequence and returns the
// audio artifact base64-encoded for transport.
func (e *Engine) speak(ctx context.Context, text string) (string, voice.Lipsync, error) {
	start := time.Now()
	artifact, err := e.synthesizer.Synthesize(ctx, text, e.voiceID)
	e.metrics.ObserveStage("synthesis", time.Since(start))
	if err != nil {
		e.metrics.IncStageError("synthesis", "essential")
		return "", voice.Lipsync{}, wrapStage(voice.ErrSynthesis, err)
	}

	start = time.Now()
	lipsync, err := e.visemes.ExtractVisemes(ctx, artifact)
	e.metrics.ObserveStage("visemes", time.Since(start))
	if err != nil {
		e.metrics.IncStageError("visemes", "essential")
		return "", voice.Lipsync{}, wrapStage(voice.ErrViseme, err)
	}

	encoded, err := e.workspace.ReadBase64(artifact)
	if err != nil {
		e.metrics.IncStageError("assembly", "essential")
		return "", voice.Lipsync{}, wrapStage(voice.ErrSynthesis, err)
	}
	return encoded, lipsync, nil
}

func (e *Engine) persist(ctx context.Context, transcript, sentimentLabel, emotionLabel, replyText string) error {
	_, err := e.store.Append(ctx, store.Turn{
		UserUtterance:     transcript,
		SentimentLabel:    sentimentLabel,
		ReplyEmotionLabel: emotionLabel,
		ReplyText:         replyText,
	})
	if err != nil {
		e.metrics.IncStageError("persistence", "essential")
		return fmt.Errorf("persist turn: %w", err)
	}
	return nil
}

func (e *Engine) summarize(ctx context.Context) {
	if e.summarizer == nil {
		return
	}
	wrote, err := e.summarizer.MaybeSummarize(ctx)
	switch {
	case err != nil:
		e.metrics.IncSummaryEvent("failed")
		log.Printf("rolling summary skipped: %v", err)
	case wrote:
		e.metrics.IncSummaryEvent("updated")
	default:
		e.metrics.IncSummaryEvent("below_threshold")
	}
}

func (e *Engine) degradedResult() Result {
	text := fmt.Sprintf(
		"Ahora mismo no puedo responder con voz: falta configurar %s. Revisa las credenciales y vuelve a intentarlo.",
		strings.Join(e.missing, ", "),
	)
	return Result{
		SentimentLabel:    mood.DefaultSentiment,
		ReplyEmotionLabel: mood.DefaultEmotion,
		Messages: []Message{{
			Text:             text,
			FacialExpression: avatar.DefaultExpression,
			Animation:        avatar.AnimationFor(0),
		}},
	}
}

func wrapStage(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}
