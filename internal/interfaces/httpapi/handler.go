package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/matchpulse/trophy-tracker/internal/usecase"
)

type Handler struct {
	tournamentService   *usecase.TournamentService
	revalidationService *usecase.RevalidationService
	fixService          *usecase.FixService
	logger              *slog.Logger
	validator           *validator.Validate
}

func NewHandler(
	tournamentService *usecase.TournamentService,
	revalidationService *usecase.RevalidationService,
	fixService *usecase.FixService,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		tournamentService:   tournamentService,
		revalidationService: revalidationService,
		fixService:          fixService,
		logger:              logger,
		validator:           validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListFinishedTournaments(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFinishedTournaments")
	defer span.End()

	items, err := h.tournamentService.ListFinished(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list finished tournaments failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetFinishedTournament(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFinishedTournament")
	defer span.End()

	leagueID, err := parseLeagueID(r.PathValue("leagueID"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.tournamentService.GetFinished(ctx, leagueID)
	if err != nil {
		h.logger.WarnContext(ctx, "get finished tournament failed", "league_id", leagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, item)
}

func (h *Handler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetCacheStats")
	defer span.End()

	stats, err := h.revalidationService.GetCacheStats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "cache stats failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, stats)
}

func (h *Handler) ListDueTournaments(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListDueTournaments")
	defer span.End()

	rows, err := h.revalidationService.ScanDue(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "due scan failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, rows)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func parseLeagueID(raw string) (int64, error) {
	leagueID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || leagueID <= 0 {
		return 0, fmt.Errorf("%w: league id must be a positive integer", usecase.ErrInvalidInput)
	}
	return leagueID, nil
}
