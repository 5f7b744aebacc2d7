package handle

import (
	"net/http"

	"go.uber.org/zap"

	"eduvane/api/internal/store"
	"eduvane/api/internal/types"
	"eduvane/api/internal/util"
)

type EvaluateRequest struct {
	UserID   string `json:"user_id"`
	ImageB64 string `json:"image_b64"`
	MIME     string `json:"mime,omitempty"`
}

type EvaluateResponse struct {
	types.Submission
	Saved bool `json:"saved"`
}

func (h *Handle) Evaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var req EvaluateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	img, hint, err := util.DecodeBase64MaybeDataURL(req.ImageB64)
	if err != nil || len(img) == 0 {
		writeError(w, http.StatusBadRequest, "bad image_b64")
		return
	}
	mime := util.PickMIME(req.MIME, hint, img)

	ctx, cancel := requestContext(r)
	defer cancel()

	res, err := h.flows.EvaluateWorkFlow(ctx, img, mime)
	if err != nil {
		h.fail(w, "evaluate", err)
		return
	}

	sub := types.Submission{
		ID:               h.newID(),
		UserID:           store.NormalizeUserID(req.UserID),
		Timestamp:        h.now(),
		ImageURL:         store.ImageRef(req.UserID, img, mime),
		EvaluationResult: res,
	}
	out := EvaluateResponse{Submission: sub, Saved: true}
	// the evaluation is returned even when it could not be stored
	if err := h.store.SaveSubmission(r.Context(), sub); err != nil {
		h.log.Error("save submission", zap.String("id", sub.ID), zap.Error(err))
		out.Saved = false
	}
	writeJSON(w, http.StatusOK, out)
}
