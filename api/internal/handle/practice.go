package handle

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"eduvane/api/internal/store"
	"eduvane/api/internal/types"
)

type PracticeRequest struct {
	UserID string `json:"user_id"`
	Prompt string `json:"prompt"`
}

type PracticeResponse struct {
	types.PracticeSet
	Intent types.Intent `json:"intent"`
	Saved  bool         `json:"saved"`
}

// Practice generates a set on POST and lists saved sets on GET.
func (h *Handle) Practice(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.generatePractice(w, r)
	case http.MethodGet:
		sets, err := h.store.ListPracticeSets(r.Context(), r.URL.Query().Get("user_id"), limitParam(r))
		if err != nil {
			h.log.Error("list practice sets", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list error: "+err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sets)
	default:
		writeError(w, http.StatusMethodNotAllowed, "GET or POST only")
	}
}

func (h *Handle) generatePractice(w http.ResponseWriter, r *http.Request) {
	var req PracticeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	res, err := h.flows.GeneratePracticeFlow(ctx, req.Prompt)
	if err != nil {
		h.fail(w, "practice", err)
		return
	}

	set := types.PracticeSet{
		ID:         h.newID(),
		UserID:     store.NormalizeUserID(req.UserID),
		Timestamp:  h.now(),
		Subject:    res.Intent.Subject,
		Topic:      res.Intent.Topic,
		Difficulty: res.Intent.Difficulty,
		Questions:  res.Questions,
	}
	out := PracticeResponse{PracticeSet: set, Intent: res.Intent.Intent, Saved: true}
	if err := h.store.SavePracticeSet(r.Context(), set); err != nil {
		h.log.Error("save practice set", zap.String("id", set.ID), zap.Error(err))
		out.Saved = false
	}
	writeJSON(w, http.StatusOK, out)
}

func limitParam(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}
