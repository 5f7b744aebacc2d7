package interpretation

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"eduvane/api/internal/llm"
	"eduvane/api/internal/logging"
	"eduvane/api/internal/types"
	"eduvane/api/internal/util"
)

//go:embed prompt/intent.system.txt
var systemPrompt string

// MaxInputRunes bounds what is forwarded to the classifier. OCR of a dense
// page stays well under it.
const MaxInputRunes = 8000

var schema = llm.Object(
	llm.Prop("intent", llm.Enum("what the learner wants",
		string(types.IntentAnalyze), string(types.IntentPractice), string(types.IntentHistory),
		string(types.IntentChat), string(types.IntentUnknown))),
	llm.Prop("subject", llm.String("school subject")),
	llm.Prop("topic", llm.String("topic within the subject")),
	llm.Prop("difficulty", llm.Enum("requested difficulty",
		string(types.DifficultyEasy), string(types.DifficultyMedium), string(types.DifficultyHard))),
	llm.Prop("count", llm.Integer("number of practice items requested")),
)

type Service struct {
	adapter llm.Adapter
	log     *zap.Logger
}

func New(adapter llm.Adapter, log *zap.Logger) *Service {
	return &Service{adapter: adapter, log: logging.OrNop(log).Named("interpretation")}
}

// ParseIntent classifies text. A reply that does not fit the schema degrades
// to types.UnknownIntent instead of failing; only adapter errors are returned.
func (s *Service) ParseIntent(ctx context.Context, text string) (types.IntentResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		s.log.Info("empty input, using unknown intent")
		return types.UnknownIntent(), nil
	}
	if n := len([]rune(text)); n > MaxInputRunes {
		s.log.Warn("input clamped", zap.Int("runes", n), zap.Int("max", MaxInputRunes))
		text = util.ClampRunes(text, MaxInputRunes)
	}

	userObj := map[string]any{
		"task":  "Classify the input and return only JSON.",
		"input": text,
	}
	userJSON, _ := json.Marshal(userObj)

	start := time.Now()
	out, err := s.adapter.Generate(ctx, llm.Request{
		System: systemPrompt,
		Text:   "INPUT_JSON:\n" + string(userJSON),
		Schema: schema,
		Effort: llm.EffortLow,
	})
	if llm.IsEmptyResponse(err) {
		out, err = "", nil
	}
	if err != nil {
		s.log.Warn("classify failed", zap.String("provider", s.adapter.Name()), zap.Error(err))
		return types.IntentResult{}, err
	}

	res, err := Decode(out)
	if err != nil {
		s.log.Warn("unparseable intent reply, using unknown intent",
			zap.Error(err),
			zap.String("raw", util.Preview(out, 300)))
		return types.UnknownIntent(), nil
	}
	s.log.Debug("classified",
		zap.String("intent", string(res.Intent)),
		zap.String("subject", res.Subject),
		zap.String("topic", res.Topic),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

// Decode validates a classifier reply and repairs individual fields.
func Decode(raw string) (types.IntentResult, error) {
	var r struct {
		Intent     string       `json:"intent"`
		Subject    string       `json:"subject"`
		Topic      string       `json:"topic"`
		Difficulty string       `json:"difficulty"`
		Count      util.FlexInt `json:"count"`
	}
	if err := json.Unmarshal([]byte(util.StripCodeFences(raw)), &r); err != nil {
		return types.IntentResult{}, fmt.Errorf("bad intent JSON: %w", err)
	}

	res := types.IntentResult{
		Intent:     types.ParseIntent(r.Intent),
		Subject:    strings.TrimSpace(r.Subject),
		Topic:      strings.TrimSpace(r.Topic),
		Difficulty: types.ParseDifficulty(r.Difficulty),
		Count:      int(r.Count),
	}
	if res.Topic == "" {
		res.Topic = res.Subject
	}
	if res.Subject == "" {
		res.Subject = types.DefaultSubject
	}
	if res.Topic == "" {
		res.Topic = types.DefaultTopic
	}
	switch {
	case res.Count <= 0:
		res.Count = types.DefaultCount
	case res.Count > types.MaxCount:
		res.Count = types.MaxCount
	}
	return res, nil
}
