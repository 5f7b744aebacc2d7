package reasoning

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"eduvane/api/internal/llm"
	"eduvane/api/internal/logging"
	"eduvane/api/internal/types"
	"eduvane/api/internal/util"
)

var (
	//go:embed prompt/evaluate.system.txt
	evaluateSystem string
	//go:embed prompt/practice.system.txt
	practiceSystem string
)

const (
	DefaultFeedback = "The diagnosis is inconclusive this time, so this score is only a placeholder. " +
		"Your work may still be on the right track."
	DefaultQuestionType = "short-answer"
)

// DefaultSteps is used whenever a reply carries no usable improvement steps.
var DefaultSteps = []string{
	"Retake the photo in good light with the whole page in view, then submit it again.",
	"Write out each step of your working so it can be followed line by line.",
	"Compare your answer with a worked example from your notes.",
}

var evaluationSchema = llm.Object(
	llm.Prop("score", llm.Number("0 to 100, decided before the feedback is written")),
	llm.Prop("feedback", llm.String("encouraging feedback consistent with the score, at most 3 sentences")),
	llm.Prop("improvementSteps", llm.ArrayOf(llm.String("one actionable step"))),
	llm.Prop("confidenceScore", llm.Number("0 to 1, self-reported certainty")),
)

var practiceSchema = llm.Object(
	llm.Prop("questions", llm.ArrayOf(llm.Object(
		llm.Prop("id", llm.String("q1, q2, ...")),
		llm.Prop("text", llm.String("the question")),
		llm.Prop("type", llm.String("question format")),
	))),
)

type Service struct {
	adapter llm.Adapter
	log     *zap.Logger
}

func New(adapter llm.Adapter, log *zap.Logger) *Service {
	return &Service{adapter: adapter, log: logging.OrNop(log).Named("reasoning")}
}

// GenerateNarrativeEvaluation scores transcribed work. Malformed replies turn
// into a well-formed default result; adapter errors are returned as is.
func (s *Service) GenerateNarrativeEvaluation(ctx context.Context, rawText string, in types.IntentResult) (types.EvaluationResult, error) {
	userObj := map[string]any{
		"task":       "Evaluate the learner's work and return only JSON.",
		"subject":    in.Subject,
		"topic":      in.Topic,
		"transcript": rawText,
	}
	userJSON, _ := json.Marshal(userObj)

	start := time.Now()
	out, err := s.adapter.Generate(ctx, llm.Request{
		System: evaluateSystem,
		Text:   "INPUT_JSON:\n" + string(userJSON),
		Schema: evaluationSchema,
		Effort: llm.EffortHigh,
	})
	if llm.IsEmptyResponse(err) {
		out, err = "", nil
	}
	if err != nil {
		s.log.Warn("evaluation failed", zap.String("provider", s.adapter.Name()), zap.Error(err))
		return types.EvaluationResult{}, err
	}

	res, err := DecodeEvaluation(out, in)
	if err != nil {
		s.log.Warn("unparseable evaluation reply, using defaults",
			zap.Error(err),
			zap.String("raw", util.Preview(out, 300)))
	}
	s.log.Info("evaluated",
		zap.String("model", s.adapter.Model()),
		zap.Float64("score", res.Score),
		zap.Float64("confidence", res.ConfidenceScore),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

type evaluationReply struct {
	Score            util.FlexFloat  `json:"score"`
	Feedback         json.RawMessage `json:"feedback"`
	ImprovementSteps util.StringList `json:"improvementSteps"`
	ConfidenceScore  util.FlexFloat  `json:"confidenceScore"`
}

// DecodeEvaluation always returns a renderable result. The error reports a
// reply that could not be read at all, in which case every field is defaulted.
func DecodeEvaluation(raw string, in types.IntentResult) (types.EvaluationResult, error) {
	res := types.EvaluationResult{
		Subject: in.Subject,
		Topic:   in.Topic,
	}
	if res.Subject == "" {
		res.Subject = types.DefaultSubject
	}
	if res.Topic == "" {
		res.Topic = types.DefaultTopic
	}

	var r evaluationReply
	err := json.Unmarshal([]byte(util.StripCodeFences(raw)), &r)
	if err != nil {
		err = fmt.Errorf("bad evaluation JSON: %w", err)
		r = evaluationReply{}
	}

	res.Score = clamp(r.Score.Value, 0, 100)

	var feedback string
	_ = json.Unmarshal(r.Feedback, &feedback)
	res.Feedback = strings.TrimSpace(feedback)
	if res.Feedback == "" {
		res.Feedback = DefaultFeedback
	}

	res.ImprovementSteps = []string(r.ImprovementSteps)
	if len(res.ImprovementSteps) == 0 {
		res.ImprovementSteps = append([]string(nil), DefaultSteps...)
	}

	conf := r.ConfidenceScore.Value
	// some models answer in percent
	if conf > 1 && conf <= 100 {
		conf /= 100
	}
	res.ConfidenceScore = clamp(conf, 0, 1)
	return res, err
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PracticePrompt is the request line sent with every practice generation.
func PracticePrompt(in types.IntentResult) string {
	return fmt.Sprintf("Generate %d %s level practice questions for %s on the topic of \"%s\".",
		practiceCount(in), in.Difficulty, in.Subject, in.Topic)
}

func practiceCount(in types.IntentResult) int {
	switch {
	case in.Count <= 0:
		return types.DefaultCount
	case in.Count > types.MaxCount:
		return types.MaxCount
	}
	return in.Count
}

// GeneratePracticeItems asks for in.Count questions. The result holds what the
// model actually produced, possibly fewer, never more.
func (s *Service) GeneratePracticeItems(ctx context.Context, in types.IntentResult) ([]types.PracticeQuestion, error) {
	if in.Difficulty == "" {
		in.Difficulty = types.DifficultyMedium
	}
	start := time.Now()
	out, err := s.adapter.Generate(ctx, llm.Request{
		System: practiceSystem,
		Text:   PracticePrompt(in),
		Schema: practiceSchema,
		Effort: llm.EffortHigh,
	})
	if llm.IsEmptyResponse(err) {
		out, err = "", nil
	}
	if err != nil {
		s.log.Warn("practice generation failed", zap.String("provider", s.adapter.Name()), zap.Error(err))
		return nil, err
	}

	qs, err := DecodePractice(out, practiceCount(in))
	if err != nil {
		s.log.Warn("unparseable practice reply, returning no questions",
			zap.Error(err),
			zap.String("raw", util.Preview(out, 300)))
		return []types.PracticeQuestion{}, nil
	}
	if len(qs) < practiceCount(in) {
		s.log.Info("model returned fewer questions than requested",
			zap.Int("requested", practiceCount(in)), zap.Int("got", len(qs)))
	}
	s.log.Debug("practice generated",
		zap.String("model", s.adapter.Model()),
		zap.Int("questions", len(qs)),
		zap.Duration("took", time.Since(start)))
	return qs, nil
}

// DecodePractice accepts {"questions":[...]} or a bare array. Items without
// text are dropped, missing or repeated ids are renumbered, and the list is
// cut to max.
func DecodePractice(raw string, max int) ([]types.PracticeQuestion, error) {
	body := []byte(util.StripCodeFences(raw))

	var items []json.RawMessage
	var wrapped struct {
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Questions != nil {
		items = wrapped.Questions
	} else if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("bad practice JSON: %w", err)
	}

	out := make([]types.PracticeQuestion, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if len(out) >= max {
			break
		}
		var q struct {
			ID       json.RawMessage `json:"id"`
			Text     string          `json:"text"`
			Question string          `json:"question"`
			Type     string          `json:"type"`
		}
		if json.Unmarshal(it, &q) != nil {
			continue
		}
		text := strings.TrimSpace(q.Text)
		if text == "" {
			text = strings.TrimSpace(q.Question)
		}
		if text == "" {
			continue
		}
		id := idString(q.ID)
		if id == "" || seen[id] {
			id = nextID(seen, len(out)+1)
		}
		seen[id] = true

		typ := strings.TrimSpace(q.Type)
		if typ == "" {
			typ = DefaultQuestionType
		}
		out = append(out, types.PracticeQuestion{ID: id, Text: text, Type: typ})
	}
	return out, nil
}

func idString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return "q" + n.String()
	}
	return ""
}

func nextID(seen map[string]bool, n int) string {
	for {
		id := fmt.Sprintf("q%d", n)
		if !seen[id] {
			return id
		}
		n++
	}
}
