package handle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduvane/api/internal/config"
	"eduvane/api/internal/insight"
	"eduvane/api/internal/llm"
	"eduvane/api/internal/orchestrator"
	"eduvane/api/internal/perception"
	"eduvane/api/internal/store"
	"eduvane/api/internal/types"
)

type fakeFlows struct {
	eval        types.EvaluationResult
	practice    orchestrator.PracticeResult
	err         error
	validateErr error
	gotMIME     string
}

func (f *fakeFlows) EvaluateWorkFlow(_ context.Context, _ []byte, mime string) (types.EvaluationResult, error) {
	f.gotMIME = mime
	return f.eval, f.err
}

func (f *fakeFlows) GeneratePracticeFlow(context.Context, string) (orchestrator.PracticeResult, error) {
	return f.practice, f.err
}

func (f *fakeFlows) ValidateConfiguration() error { return f.validateErr }

func newServer(t *testing.T, flows *fakeFlows) (*httptest.Server, store.Store) {
	t.Helper()
	st, err := store.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	h := New(flows, st, nil)
	n := 0
	h.newID = func() string { n++; return fmt.Sprintf("id-%d", n) }
	base := time.UnixMilli(1_700_000_000_000).UTC()
	h.now = func() time.Time { return base.Add(time.Duration(n) * time.Minute) }

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv, st
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

var jpegB64 = base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F'})

func TestEvaluateSavesSubmission(t *testing.T) {
	flows := &fakeFlows{eval: types.EvaluationResult{
		Subject: "Math", Topic: "Long Division", Score: 90, Feedback: "Great.",
		ImprovementSteps: []string{"a", "b", "c"}, ConfidenceScore: 0.9,
	}}
	srv, st := newServer(t, flows)

	resp := postJSON(t, srv.URL+"/v1/evaluate", EvaluateRequest{UserID: "", ImageB64: "data:image/jpeg;base64," + jpegB64})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out EvaluateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Saved)
	assert.Equal(t, "id-1", out.ID)
	assert.Equal(t, store.GuestUserID, out.UserID)
	assert.Equal(t, 90.0, out.Score)
	assert.Contains(t, out.ImageURL, "data:image/jpeg;base64,")
	assert.Equal(t, "image/jpeg", flows.gotMIME)

	subs, err := st.ListSubmissions(context.Background(), "guest", 10)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Long Division", subs[0].Topic)
}

func TestEvaluateErrorMapping(t *testing.T) {
	transport := &llm.TransportError{Provider: "gemini", Err: errors.New("boom")}
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty perception", orchestrator.ErrPerceptionEmpty, http.StatusUnprocessableEntity},
		{"unsupported", fmt.Errorf("%w: %q", perception.ErrUnsupportedMIME, "application/pdf"), http.StatusUnsupportedMediaType},
		{"transport", &perception.Failure{Err: transport}, http.StatusBadGateway},
		{"deadline", &perception.Failure{Err: &llm.TransportError{Err: context.DeadlineExceeded}}, http.StatusGatewayTimeout},
		{"config", &config.ConfigurationError{Problems: []string{"x"}}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, st := newServer(t, &fakeFlows{err: tt.err})
			resp := postJSON(t, srv.URL+"/v1/evaluate", EvaluateRequest{UserID: "u1", ImageB64: jpegB64})
			assert.Equal(t, tt.want, resp.StatusCode)

			subs, err := st.ListSubmissions(context.Background(), "u1", 10)
			require.NoError(t, err)
			assert.Empty(t, subs)
		})
	}
}

func TestEvaluateBadInput(t *testing.T) {
	srv, _ := newServer(t, &fakeFlows{})

	resp := postJSON(t, srv.URL+"/v1/evaluate", EvaluateRequest{ImageB64: "!!!"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	r, err := http.Get(srv.URL + "/v1/evaluate")
	require.NoError(t, err)
	defer r.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, r.StatusCode)
}

func TestPracticeGenerateAndList(t *testing.T) {
	flows := &fakeFlows{practice: orchestrator.PracticeResult{
		Intent: types.IntentResult{Intent: types.IntentPractice, Subject: "Physics", Topic: "Newton's Laws", Difficulty: types.DifficultyMedium, Count: 10},
		Questions: []types.PracticeQuestion{
			{ID: "q1", Text: "State the first law.", Type: "short-answer"},
		},
	}}
	srv, _ := newServer(t, flows)

	resp := postJSON(t, srv.URL+"/v1/practice", PracticeRequest{UserID: "u1", Prompt: "10 Physics problems on Newton's Laws"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out PracticeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, types.IntentPractice, out.Intent)
	assert.Equal(t, "Physics", out.Subject)
	assert.Len(t, out.Questions, 1)

	list, err := http.Get(srv.URL + "/v1/practice?user_id=u1")
	require.NoError(t, err)
	defer list.Body.Close()
	var sets []types.PracticeSet
	require.NoError(t, json.NewDecoder(list.Body).Decode(&sets))
	require.Len(t, sets, 1)
	assert.Equal(t, "Newton's Laws", sets[0].Topic)
}

func TestPracticeEmptyPrompt(t *testing.T) {
	srv, _ := newServer(t, &fakeFlows{err: orchestrator.ErrEmptyPrompt})
	resp := postJSON(t, srv.URL+"/v1/practice", PracticeRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInsightForLatestSubmission(t *testing.T) {
	flows := &fakeFlows{eval: types.EvaluationResult{
		Subject: "Math", Topic: "Fractions", Score: 40, Feedback: "Keep going.",
		ImprovementSteps: []string{"Find a common denominator."}, ConfidenceScore: 0.6,
	}}
	srv, _ := newServer(t, flows)
	resp := postJSON(t, srv.URL+"/v1/evaluate", EvaluateRequest{UserID: "u1", ImageB64: jpegB64})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	r, err := http.Get(srv.URL + "/v1/submissions/insight?user_id=u1&audience=educator")
	require.NoError(t, err)
	defer r.Body.Close()
	require.Equal(t, http.StatusOK, r.StatusCode)

	var out InsightResponse
	require.NoError(t, json.NewDecoder(r.Body).Decode(&out))
	assert.Equal(t, insight.StatusPendingReview, out.Insight.Status)
	assert.Equal(t, insight.ImpactHigh, out.Insight.Impact)
	require.Len(t, out.Translations, 1)
	assert.Equal(t, insight.AudienceEducator, out.Translations[0].Audience)

	missing, err := http.Get(srv.URL + "/v1/submissions/insight?user_id=nobody")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestProfileUpsert(t *testing.T) {
	srv, _ := newServer(t, &fakeFlows{})

	b, _ := json.Marshal(types.Profile{ID: "u1", DisplayName: "Ada", Mode: types.ModeInstitutional})
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/v1/profile", bytes.NewReader(b))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	get, err := http.Get(srv.URL + "/v1/profile?user_id=u1")
	require.NoError(t, err)
	defer get.Body.Close()
	var p types.Profile
	require.NoError(t, json.NewDecoder(get.Body).Decode(&p))
	assert.Equal(t, "Ada", p.DisplayName)
}

func TestReadyz(t *testing.T) {
	flows := &fakeFlows{validateErr: &config.ConfigurationError{Problems: []string{"GEMINI_API_KEY is not set"}}}
	srv, _ := newServer(t, flows)

	r, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	defer r.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, r.StatusCode)

	flows.validateErr = nil
	r2, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	defer r2.Body.Close()
	assert.Equal(t, http.StatusOK, r2.StatusCode)
}

func TestUnavailable(t *testing.T) {
	srv := httptest.NewServer(Unavailable(errors.New("configuration error: GEMINI_API_KEY is not set")))
	defer srv.Close()

	h, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer h.Body.Close()
	assert.Equal(t, http.StatusOK, h.StatusCode)

	r, err := http.Post(srv.URL+"/v1/evaluate", "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	defer r.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, r.StatusCode)
}
