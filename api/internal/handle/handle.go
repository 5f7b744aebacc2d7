package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"eduvane/api/internal/llm"
	"eduvane/api/internal/logging"
	"eduvane/api/internal/orchestrator"
	"eduvane/api/internal/perception"
	"eduvane/api/internal/store"
	"eduvane/api/internal/types"
)

// Flows is the part of the orchestrator the API drives.
type Flows interface {
	EvaluateWorkFlow(ctx context.Context, image []byte, mime string) (types.EvaluationResult, error)
	GeneratePracticeFlow(ctx context.Context, prompt string) (orchestrator.PracticeResult, error)
	ValidateConfiguration() error
}

const (
	defaultDeadline = 240 * time.Second
	maxBodyBytes    = 20 << 20
)

type Handle struct {
	flows Flows
	store store.Store
	log   *zap.Logger

	now   func() time.Time
	newID func() string
}

func New(flows Flows, st store.Store, log *zap.Logger) *Handle {
	return &Handle{
		flows: flows,
		store: st,
		log:   logging.OrNop(log).Named("http"),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

func (h *Handle) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", Healthz)
	mux.HandleFunc("/readyz", h.Readyz)
	mux.HandleFunc("/v1/evaluate", h.Evaluate)
	mux.HandleFunc("/v1/practice", h.Practice)
	mux.HandleFunc("/v1/submissions", h.Submissions)
	mux.HandleFunc("/v1/submissions/insight", h.Insight)
	mux.HandleFunc("/v1/profile", h.Profile)
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return false
	}
	return true
}

// requestContext honours X-Request-Timeout (or ?timeoutSec=) in seconds.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	deadline := defaultDeadline
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	} else if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	}
	return context.WithTimeout(r.Context(), deadline)
}

// statusFor maps pipeline errors onto HTTP codes. Deadline is checked before
// transport because adapters wrap context errors.
func statusFor(err error) int {
	switch {
	case errors.Is(err, perception.ErrEmptyImage), errors.Is(err, orchestrator.ErrEmptyPrompt):
		return http.StatusBadRequest
	case errors.Is(err, perception.ErrUnsupportedMIME):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, orchestrator.ErrPerceptionEmpty):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case llm.IsTransport(err):
		return http.StatusBadGateway
	}
	var pf *perception.Failure
	if errors.As(err, &pf) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handle) fail(w http.ResponseWriter, op string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.log.Warn(op+" failed", zap.Int("status", code), zap.Error(err))
	} else {
		h.log.Info(op+" rejected", zap.Int("status", code), zap.Error(err))
	}
	writeError(w, code, op+" error: "+err.Error())
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handle) Readyz(w http.ResponseWriter, _ *http.Request) {
	if err := h.flows.ValidateConfiguration(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Unavailable serves only health endpoints; everything else answers 503 with cause.
func Unavailable(cause error) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", Healthz)
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusServiceUnavailable, cause.Error())
	})
	return mux
}
