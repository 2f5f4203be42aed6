package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/chronolog/internal/cache"
	"github.com/geocoder89/chronolog/internal/config"
	"github.com/geocoder89/chronolog/internal/domain/report"
	"github.com/geocoder89/chronolog/internal/http/middlewares"
	"github.com/geocoder89/chronolog/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

type ReportsStore interface {
	Daily(ctx context.Context, userID string, rng report.Range) ([]report.DailyRow, error)
	Weekly(ctx context.Context, userID string, rng report.Range) ([]report.WeeklyRow, error)
	Monthly(ctx context.Context, userID string, rng report.Range) ([]report.MonthlyRow, error)
	Leaderboard(ctx context.Context, userID string, rng report.Range, limit int) ([]report.LeaderboardRow, error)
}

// ReportsHandler serves read-only aggregations. Rows are cached for a
// short TTL keyed by (report, user, range); a nil cache disables it.
type ReportsHandler struct {
	repo  ReportsStore
	cache *cache.Cache
}

func NewReportsHandler(repo ReportsStore, c *cache.Cache) *ReportsHandler {
	return &ReportsHandler{repo: repo, cache: c}
}

func (h *ReportsHandler) cached(key string) (interface{}, bool) {
	if h.cache == nil {
		return nil, false
	}

	return h.cache.Get(key)
}

func (h *ReportsHandler) store(key string, rows interface{}) {
	if h.cache != nil {
		h.cache.Set(key, rows)
	}
}

// parseRange validates the required start/end query params. end must
// not precede start.
func parseRange(ctx *gin.Context) (report.Range, bool) {
	start := ctx.Query("start")
	end := ctx.Query("end")

	startDate, err := time.Parse(dateLayout, start)

	if err != nil {
		RespondBadRequest(ctx, "start must be a YYYY-MM-DD date", nil)
		return report.Range{}, false
	}

	endDate, err := time.Parse(dateLayout, end)

	if err != nil {
		RespondBadRequest(ctx, "end must be a YYYY-MM-DD date", nil)
		return report.Range{}, false
	}

	if endDate.Before(startDate) {
		RespondBadRequest(ctx, "end must not be before start", nil)
		return report.Range{}, false
	}

	return report.Range{Start: start, End: end}, true
}

func (h *ReportsHandler) Daily(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Access token is required")
		return
	}

	rng, ok := parseRange(ctx)

	if !ok {
		return
	}

	key := utils.BuildReportCacheKey("daily", userID, rng.Start, rng.End, 0)

	if rows, ok := h.cached(key); ok {
		RespondData(ctx, http.StatusOK, rows)
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	rows, err := h.repo.Daily(cctx, userID, rng)

	if err != nil {
		RespondInternal(ctx, "Could not build report")
		return
	}

	h.store(key, rows)

	RespondData(ctx, http.StatusOK, rows)
}

func (h *ReportsHandler) Weekly(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Access token is required")
		return
	}

	rng, ok := parseRange(ctx)

	if !ok {
		return
	}

	key := utils.BuildReportCacheKey("weekly", userID, rng.Start, rng.End, 0)

	if rows, ok := h.cached(key); ok {
		RespondData(ctx, http.StatusOK, rows)
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	rows, err := h.repo.Weekly(cctx, userID, rng)

	if err != nil {
		RespondInternal(ctx, "Could not build report")
		return
	}

	h.store(key, rows)

	RespondData(ctx, http.StatusOK, rows)
}

func (h *ReportsHandler) Monthly(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Access token is required")
		return
	}

	rng, ok := parseRange(ctx)

	if !ok {
		return
	}

	key := utils.BuildReportCacheKey("monthly", userID, rng.Start, rng.End, 0)

	if rows, ok := h.cached(key); ok {
		RespondData(ctx, http.StatusOK, rows)
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	rows, err := h.repo.Monthly(cctx, userID, rng)

	if err != nil {
		RespondInternal(ctx, "Could not build report")
		return
	}

	h.store(key, rows)

	RespondData(ctx, http.StatusOK, rows)
}

func (h *ReportsHandler) SubjectLeaderboard(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Access token is required")
		return
	}

	rng, ok := parseRange(ctx)

	if !ok {
		return
	}

	limit := defaultLeaderboardLimit

	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)

		if err != nil || n < 1 {
			RespondBadRequest(ctx, "limit must be a positive integer", nil)
			return
		}

		if n > maxLeaderboardLimit {
			n = maxLeaderboardLimit
		}

		limit = n
	}

	key := utils.BuildReportCacheKey("subject-leaderboard", userID, rng.Start, rng.End, limit)

	if rows, ok := h.cached(key); ok {
		RespondData(ctx, http.StatusOK, rows)
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	rows, err := h.repo.Leaderboard(cctx, userID, rng, limit)

	if err != nil {
		RespondInternal(ctx, "Could not build report")
		return
	}

	h.store(key, rows)

	RespondData(ctx, http.StatusOK, rows)
}
