// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/yapmint/yapmint/internal/domain/model"
)

// ScoreDependencies defines the interface for score lookups.
type ScoreDependencies interface {
	FetchScore(ctx context.Context, handle string) (model.ScoreRecord, uint64, error)
}

// ScoreHandler handles attention-score requests.
type ScoreHandler struct {
	deps ScoreDependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// HandleGetScore handles GET /score?handle={handle} requests.
func (h *ScoreHandler) HandleGetScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_score"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	handle := strings.TrimSpace(r.URL.Query().Get("handle"))
	if handle == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	record, preview, err := h.deps.FetchScore(r.Context(), handle)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{
		Handle:        record.Handle,
		RawScore:      record.RawScore,
		Rank:          record.Rank,
		Normalized:    record.Normalized,
		Transport:     record.Transport,
		FetchedAt:     formatTime(record.FetchedAt),
		RewardPreview: preview,
	})
}
