package handle

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"eduvane/api/internal/insight"
	"eduvane/api/internal/store"
	"eduvane/api/internal/types"
)

func (h *Handle) Submissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	subs, err := h.store.ListSubmissions(r.Context(), r.URL.Query().Get("user_id"), limitParam(r))
	if err != nil {
		h.log.Error("list submissions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

type InsightResponse struct {
	Insight      insight.Insight      `json:"insight"`
	Translations []insight.Translated `json:"translations"`
}

// Insight bands the latest submission and tells it for one audience, or for
// all of them when ?audience= is empty.
func (h *Handle) Insight(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	q := r.URL.Query()
	userID := q.Get("user_id")

	var audience insight.Audience
	if a := q.Get("audience"); a != "" {
		var err error
		if audience, err = insight.ParseAudience(a); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	subs, err := h.store.ListSubmissions(r.Context(), userID, 1)
	if err != nil {
		h.log.Error("list submissions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list error: "+err.Error())
		return
	}
	if len(subs) == 0 {
		writeError(w, http.StatusNotFound, "no submissions")
		return
	}

	in := insight.FromSubmission(subs[0], h.modeOf(r, userID))
	out := InsightResponse{Insight: in}
	if audience != "" {
		out.Translations = []insight.Translated{insight.Translate(in, audience)}
	} else {
		out.Translations = insight.TranslateAll(in)
	}
	writeJSON(w, http.StatusOK, out)
}

// modeOf uses the stored profile; without one guests are standalone and
// signed-in users institutional.
func (h *Handle) modeOf(r *http.Request, userID string) types.Mode {
	p, err := h.store.GetProfile(r.Context(), userID)
	if err == nil && p.Mode != "" {
		return p.Mode
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.log.Warn("get profile", zap.Error(err))
	}
	if store.IsGuest(userID) {
		return types.ModeStandalone
	}
	return types.ModeInstitutional
}

func (h *Handle) Profile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		p, err := h.store.GetProfile(r.Context(), r.URL.Query().Get("user_id"))
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no profile")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "profile error: "+err.Error())
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPut:
		var p types.Profile
		if !decodeBody(w, r, &p) {
			return
		}
		switch p.Mode {
		case "", types.ModeStandalone, types.ModeInstitutional:
		default:
			writeError(w, http.StatusBadRequest, "mode must be STANDALONE or INSTITUTIONAL")
			return
		}
		p.ID = store.NormalizeUserID(p.ID)
		if err := h.store.UpsertProfile(r.Context(), p); err != nil {
			h.log.Error("upsert profile", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "profile error: "+err.Error())
			return
		}
		saved, err := h.store.GetProfile(r.Context(), p.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "profile error: "+err.Error())
			return
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		writeError(w, http.StatusMethodNotAllowed, "GET or PUT only")
	}
}
