package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	sonic "github.com/bytedance/sonic"

	"github.com/matchpulse/trophy-tracker/internal/usecase"
)

type revalidateJobRequest struct {
	LeagueIDs     []int64 `json:"league_ids" validate:"omitempty,dive,gt=0"`
	MaxConcurrent int     `json:"max_concurrent" validate:"omitempty,gte=1,lte=20"`
}

type revalidateJobResponse struct {
	Requested int                          `json:"requested"`
	Flagged   int                          `json:"flagged"`
	Results   []usecase.RevalidationResult `json:"results"`
}

type fixJobRequest struct {
	Issues []usecase.Issue `json:"issues" validate:"required,min=1,dive"`
}

// RunRevalidateJob re-checks the given league IDs, or every due record when
// the request body names none.
func (h *Handler) RunRevalidateJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRevalidateJob")
	defer span.End()

	var req revalidateJobRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	ids := req.LeagueIDs
	if len(ids) == 0 {
		due, err := h.revalidationService.ScanDue(ctx)
		if err != nil {
			h.logger.ErrorContext(ctx, "due scan failed", "error", err)
			writeError(ctx, w, err)
			return
		}
		ids = make([]int64, 0, len(due))
		for _, row := range due {
			ids = append(ids, row.LeagueID)
		}
	}

	results, err := h.revalidationService.BatchRevalidate(ctx, ids, req.MaxConcurrent)
	if err != nil {
		h.logger.ErrorContext(ctx, "revalidate job failed", "requested", len(ids), "error", err)
		writeError(ctx, w, err)
		return
	}

	flagged := 0
	for _, result := range results {
		if result.NeedsUpdate {
			flagged++
		}
	}
	h.logger.InfoContext(ctx, "revalidate job finished", "requested", len(ids), "flagged", flagged)

	writeSuccess(ctx, w, http.StatusOK, revalidateJobResponse{
		Requested: len(ids),
		Flagged:   flagged,
		Results:   results,
	})
}

// RunFixJob applies corrections for previously flagged records.
func (h *Handler) RunFixJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunFixJob")
	defer span.End()

	var req fixJobRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	outcomes, err := h.fixService.ApplyCorrections(ctx, req.Issues)
	if err != nil {
		h.logger.ErrorContext(ctx, "fix job failed", "issues", len(req.Issues), "error", err)
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "fix job finished", "issues", len(req.Issues), "outcomes", len(outcomes))
	writeSuccess(ctx, w, http.StatusOK, outcomes)
}
