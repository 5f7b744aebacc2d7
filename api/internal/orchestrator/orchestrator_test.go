package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduvane/api/internal/config"
	"eduvane/api/internal/interpretation"
	"eduvane/api/internal/llm"
	"eduvane/api/internal/llm/gpt"
	"eduvane/api/internal/perception"
	"eduvane/api/internal/reasoning"
	"eduvane/api/internal/types"
)

var jpeg = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

// script answers each stage by looking at the request it receives.
type script struct {
	ocr, intent, reason string
	calls               atomic.Int32
	reasonCalls         atomic.Int32
	intentCalls         atomic.Int32
}

func (s *script) fast() llm.Adapter {
	return llm.Func(func(_ context.Context, req llm.Request) (string, error) {
		s.calls.Add(1)
		if req.Image != nil {
			return s.ocr, nil
		}
		s.intentCalls.Add(1)
		return s.intent, nil
	})
}

func (s *script) reasoning() llm.Adapter {
	return llm.Func(func(_ context.Context, req llm.Request) (string, error) {
		s.calls.Add(1)
		s.reasonCalls.Add(1)
		return s.reason, nil
	})
}

func (s *script) orchestrator(opts ...Option) *Orchestrator {
	return New(
		perception.New(s.fast(), nil),
		interpretation.New(s.fast(), nil),
		reasoning.New(s.reasoning(), nil),
		opts...,
	)
}

func TestEvaluateWorkLongDivision(t *testing.T) {
	s := &script{
		ocr:    "84 ÷ 4\n4 goes into 8 two times\n4 goes into 4 one time\n= 21",
		intent: `{"intent":"ANALYZE","subject":"Math","topic":"Long Division","difficulty":"Medium","count":5}`,
		reason: `{"score":95,"feedback":"Great job keeping each step tidy.","improvementSteps":["Check by multiplying 21 by 4.","Label the remainder.","Try a three-digit dividend."],"confidenceScore":0.8}`,
	}
	res, err := s.orchestrator().EvaluateWorkFlow(context.Background(), jpeg, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "Math", res.Subject)
	assert.GreaterOrEqual(t, res.Score, 0.0)
	assert.LessOrEqual(t, res.Score, 100.0)
	assert.NotEmpty(t, res.Feedback)
	assert.GreaterOrEqual(t, len(res.ImprovementSteps), 1)
	assert.EqualValues(t, 3, s.calls.Load())
}

func TestEvaluateWorkEmptyPerceptionStops(t *testing.T) {
	for _, ocr := range []string{"", "   \n\t", "```\n```"} {
		s := &script{ocr: ocr}
		_, err := s.orchestrator().EvaluateWorkFlow(context.Background(), jpeg, "image/jpeg")
		require.ErrorIs(t, err, ErrPerceptionEmpty)
		assert.Zero(t, s.intentCalls.Load())
		assert.Zero(t, s.reasonCalls.Load())
	}
}

func TestEvaluateWorkPerceptionFailureStops(t *testing.T) {
	transport := &llm.TransportError{Provider: "gemini", Model: "flash", Status: 401, Err: errors.New("bad key")}
	var downstream atomic.Int32
	o := New(
		perception.New(llm.Func(func(context.Context, llm.Request) (string, error) { return "", transport }), nil),
		interpretation.New(llm.Func(func(context.Context, llm.Request) (string, error) {
			downstream.Add(1)
			return "", nil
		}), nil),
		reasoning.New(llm.Func(func(context.Context, llm.Request) (string, error) {
			downstream.Add(1)
			return "", nil
		}), nil),
	)

	_, err := o.EvaluateWorkFlow(context.Background(), jpeg, "image/jpeg")
	var pf *perception.Failure
	require.ErrorAs(t, err, &pf)
	assert.ErrorIs(t, err, transport)
	assert.Zero(t, downstream.Load())
}

func TestEvaluateWorkMalformedDownstreamStillRenders(t *testing.T) {
	s := &script{ocr: "2 + 2 = 5", intent: "garbage", reason: "also garbage"}
	res, err := s.orchestrator().EvaluateWorkFlow(context.Background(), jpeg, "")
	require.NoError(t, err)
	assert.Equal(t, types.DefaultSubject, res.Subject)
	assert.Zero(t, res.Score)
	assert.NotEmpty(t, res.Feedback)
	assert.NotEmpty(t, res.ImprovementSteps)
}

func TestEvaluateWorkUnsupportedMIMENeverCallsAdapter(t *testing.T) {
	s := &script{}
	_, err := s.orchestrator().EvaluateWorkFlow(context.Background(), []byte("%PDF-1.7"), "application/pdf")
	require.ErrorIs(t, err, perception.ErrUnsupportedMIME)
	assert.Zero(t, s.calls.Load())
}

func TestGeneratePracticePhysics(t *testing.T) {
	s := &script{
		intent: `{"intent":"PRACTICE","subject":"Physics","topic":"Newton's Laws","difficulty":"Medium","count":10}`,
		reason: `{"questions":[
			{"id":"q1","text":"State Newton's first law.","type":"short-answer"},
			{"id":"q2","text":"A 2 kg cart accelerates at 3 m/s^2. Find the net force.","type":"problem"},
			{"id":"q3","text":"Give an example of an action-reaction pair.","type":"short-answer"}
		]}`,
	}
	res, err := s.orchestrator().GeneratePracticeFlow(context.Background(), "10 Physics problems on Newton's Laws")
	require.NoError(t, err)
	assert.Equal(t, types.IntentResult{
		Intent: types.IntentPractice, Subject: "Physics", Topic: "Newton's Laws",
		Difficulty: types.DifficultyMedium, Count: 10,
	}, res.Intent)
	require.Len(t, res.Questions, 3)
	assert.LessOrEqual(t, len(res.Questions), 10)
	for _, q := range res.Questions {
		assert.NotEmpty(t, strings.TrimSpace(q.Text))
	}
}

func TestGeneratePracticeEmptyPrompt(t *testing.T) {
	s := &script{}
	_, err := s.orchestrator().GeneratePracticeFlow(context.Background(), "  ")
	require.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Zero(t, s.calls.Load())
}

func TestGeneratePracticeTransportErrorPropagates(t *testing.T) {
	transport := &llm.TransportError{Provider: "genai", Model: "pro", Err: errors.New("connection reset")}
	s := &script{intent: `{"intent":"PRACTICE","subject":"Math"}`}
	o := New(
		perception.New(s.fast(), nil),
		interpretation.New(s.fast(), nil),
		reasoning.New(llm.Func(func(context.Context, llm.Request) (string, error) { return "", transport }), nil),
	)
	_, err := o.GeneratePracticeFlow(context.Background(), "fractions please")
	assert.ErrorIs(t, err, transport)
}

func TestStageTimeoutReachesAdapter(t *testing.T) {
	slow := llm.Func(func(ctx context.Context, req llm.Request) (string, error) {
		<-ctx.Done()
		return "", &llm.TransportError{Provider: "func", Err: ctx.Err()}
	})
	o := New(
		perception.New(slow, nil),
		interpretation.New(slow, nil),
		reasoning.New(slow, nil),
		WithTimeouts(config.Timeouts{Perception: 20 * time.Millisecond, Interpretation: time.Second, Reasoning: time.Second}),
	)
	start := time.Now()
	_, err := o.EvaluateWorkFlow(context.Background(), jpeg, "image/jpeg")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestCancellationStopsBeforeNextStage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var reasonCalls atomic.Int32
	o := New(
		nil,
		interpretation.New(llm.Func(func(context.Context, llm.Request) (string, error) {
			cancel()
			return `{"intent":"PRACTICE","subject":"Math"}`, nil
		}), nil),
		reasoning.New(llm.Func(func(context.Context, llm.Request) (string, error) {
			reasonCalls.Add(1)
			return `{"questions":[]}`, nil
		}), nil),
	)
	_, err := o.GeneratePracticeFlow(ctx, "fractions")
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, reasonCalls.Load())
}

func TestValidateConfigurationIsIdempotent(t *testing.T) {
	var calls int
	want := &config.ConfigurationError{Problems: []string{"GEMINI_API_KEY is not set"}}
	o := New(nil, nil, nil, WithValidator(func() error {
		calls++
		return want
	}))
	for i := 0; i < 3; i++ {
		assert.Equal(t, want, o.ValidateConfiguration())
	}
	assert.Equal(t, 3, calls)

	assert.NoError(t, New(nil, nil, nil).ValidateConfiguration())
}

func TestFromConfigValidatesEnvironment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	o, err := FromConfig(config.Default(), nil)
	require.NoError(t, err)

	var ce *config.ConfigurationError
	require.ErrorAs(t, o.ValidateConfiguration(), &ce)

	t.Setenv("GEMINI_API_KEY", "AIzaSyTESTKEY0123456789abcdefghijklmno")
	assert.NoError(t, o.ValidateConfiguration())
}

func TestEvaluateWorkBlankReplyFromRealAdapterIsPerceptionEmpty(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"output_text":"   "}`))
	}))
	defer srv.Close()

	key := func() string { return "sk-test-0123456789abcdefghij" }
	adapter := gpt.New(key, "gpt-4o-mini").WithBaseURL(srv.URL).WithHTTPClient(srv.Client())
	o := New(
		perception.New(adapter, nil),
		interpretation.New(adapter, nil),
		reasoning.New(adapter, nil),
	)

	_, err := o.EvaluateWorkFlow(context.Background(), jpeg, "image/jpeg")
	require.ErrorIs(t, err, ErrPerceptionEmpty)
	assert.False(t, llm.IsTransport(err))
	assert.Equal(t, int32(1), hits.Load())
}
