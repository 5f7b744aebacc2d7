// Package orchestrator runs the Perception, Interpretation and Reasoning
// stages in sequence for the two user-facing flows.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"eduvane/api/internal/config"
	"eduvane/api/internal/interpretation"
	"eduvane/api/internal/llm/engines"
	"eduvane/api/internal/logging"
	"eduvane/api/internal/perception"
	"eduvane/api/internal/reasoning"
	"eduvane/api/internal/types"
)

var (
	// ErrPerceptionEmpty means the photo produced no text. Nothing downstream ran.
	ErrPerceptionEmpty = errors.New("no text could be read from the image")
	ErrEmptyPrompt     = errors.New("prompt is empty")
)

type Perceiver interface {
	ExtractVerbatim(ctx context.Context, image []byte, mime string) (string, error)
}

type Interpreter interface {
	ParseIntent(ctx context.Context, text string) (types.IntentResult, error)
}

type Reasoner interface {
	GenerateNarrativeEvaluation(ctx context.Context, rawText string, in types.IntentResult) (types.EvaluationResult, error)
	GeneratePracticeItems(ctx context.Context, in types.IntentResult) ([]types.PracticeQuestion, error)
}

// PracticeResult carries the classified request next to the questions so
// callers can title and store the set.
type PracticeResult struct {
	Intent    types.IntentResult       `json:"intent"`
	Questions []types.PracticeQuestion `json:"questions"`
}

type Orchestrator struct {
	perception     Perceiver
	interpretation Interpreter
	reasoning      Reasoner
	timeouts       config.Timeouts
	validate       func() error
	log            *zap.Logger
}

type Option func(*Orchestrator)

// WithTimeouts sets the per-stage deadlines. A zero value leaves that stage
// bounded only by the caller's context.
func WithTimeouts(t config.Timeouts) Option {
	return func(o *Orchestrator) { o.timeouts = t }
}

// WithValidator sets the check behind ValidateConfiguration.
func WithValidator(fn func() error) Option {
	return func(o *Orchestrator) { o.validate = fn }
}

func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = logging.OrNop(log).Named("orchestrator") }
}

func New(p Perceiver, i Interpreter, r Reasoner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		perception:     p,
		interpretation: i,
		reasoning:      r,
		log:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// FromConfig wires the stages to the adapters cfg names. It does not validate
// credentials; call ValidateConfiguration before serving traffic.
func FromConfig(cfg *config.Config, log *zap.Logger) (*Orchestrator, error) {
	e, err := engines.New(cfg)
	if err != nil {
		return nil, err
	}
	return New(
		perception.New(e.Fast, log),
		interpretation.New(e.Fast, log),
		reasoning.New(e.Reasoning, log),
		WithTimeouts(cfg.Timeouts),
		WithValidator(cfg.Validate),
		WithLogger(log),
	), nil
}

// ValidateConfiguration reports whether the service can make remote calls.
// It has no side effects and may be called any number of times.
func (o *Orchestrator) ValidateConfiguration() error {
	if o.validate == nil {
		return nil
	}
	return o.validate()
}

func stageContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// EvaluateWorkFlow transcribes image, classifies the transcript and scores it.
func (o *Orchestrator) EvaluateWorkFlow(ctx context.Context, image []byte, mime string) (types.EvaluationResult, error) {
	log := o.log.With(zap.String("run", uuid.NewString()), zap.String("flow", "evaluate"))
	start := time.Now()

	text, err := o.perceive(ctx, image, mime)
	if err != nil {
		log.Warn("perception failed", zap.Error(err))
		return types.EvaluationResult{}, err
	}
	if strings.TrimSpace(text) == "" {
		log.Info("perception returned no text, stopping")
		return types.EvaluationResult{}, ErrPerceptionEmpty
	}

	in, err := o.interpret(ctx, text)
	if err != nil {
		log.Warn("interpretation failed", zap.Error(err))
		return types.EvaluationResult{}, err
	}
	log.Debug("interpreted", zap.String("intent", string(in.Intent)), zap.String("subject", in.Subject))

	if err := ctx.Err(); err != nil {
		return types.EvaluationResult{}, err
	}
	rctx, cancel := stageContext(ctx, o.timeouts.Reasoning)
	defer cancel()
	res, err := o.reasoning.GenerateNarrativeEvaluation(rctx, text, in)
	if err != nil {
		log.Warn("reasoning failed", zap.Error(err))
		return types.EvaluationResult{}, fmt.Errorf("reasoning: %w", err)
	}
	log.Info("evaluation done", zap.Float64("score", res.Score), zap.Duration("took", time.Since(start)))
	return res, nil
}

// GeneratePracticeFlow classifies prompt and generates the questions it asks for.
func (o *Orchestrator) GeneratePracticeFlow(ctx context.Context, prompt string) (PracticeResult, error) {
	log := o.log.With(zap.String("run", uuid.NewString()), zap.String("flow", "practice"))
	start := time.Now()

	if strings.TrimSpace(prompt) == "" {
		return PracticeResult{}, ErrEmptyPrompt
	}
	in, err := o.interpret(ctx, prompt)
	if err != nil {
		log.Warn("interpretation failed", zap.Error(err))
		return PracticeResult{}, err
	}
	if in.Intent != types.IntentPractice {
		log.Debug("prompt not classified as practice, generating anyway", zap.String("intent", string(in.Intent)))
	}

	if err := ctx.Err(); err != nil {
		return PracticeResult{}, err
	}
	rctx, cancel := stageContext(ctx, o.timeouts.Reasoning)
	defer cancel()
	qs, err := o.reasoning.GeneratePracticeItems(rctx, in)
	if err != nil {
		log.Warn("reasoning failed", zap.Error(err))
		return PracticeResult{}, fmt.Errorf("reasoning: %w", err)
	}
	log.Info("practice done",
		zap.String("subject", in.Subject),
		zap.Int("requested", in.Count),
		zap.Int("questions", len(qs)),
		zap.Duration("took", time.Since(start)))
	return PracticeResult{Intent: in, Questions: qs}, nil
}

func (o *Orchestrator) perceive(ctx context.Context, image []byte, mime string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	pctx, cancel := stageContext(ctx, o.timeouts.Perception)
	defer cancel()
	return o.perception.ExtractVerbatim(pctx, image, mime)
}

func (o *Orchestrator) interpret(ctx context.Context, text string) (types.IntentResult, error) {
	if err := ctx.Err(); err != nil {
		return types.IntentResult{}, err
	}
	ictx, cancel := stageContext(ctx, o.timeouts.Interpretation)
	defer cancel()
	in, err := o.interpretation.ParseIntent(ictx, text)
	if err != nil {
		return types.IntentResult{}, fmt.Errorf("interpretation: %w", err)
	}
	return in, nil
}
