package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/chronolog/internal/config"
	"github.com/geocoder89/chronolog/internal/domain/subject"
	"github.com/geocoder89/chronolog/internal/domain/timeentry"
	"github.com/geocoder89/chronolog/internal/http/middlewares"
	"github.com/geocoder89/chronolog/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultEntriesLimit = 50
	maxEntriesLimit     = 200

	dateLayout = "2006-01-02"
)

type TimeEntriesStore interface {
	GetByID(ctx context.Context, userID, id string) (timeentry.TimeEntry, error)
	Insert(ctx context.Context, userID, subjectID, date string, durationMinutes int, notes *string) (timeentry.TimeEntry, error)
	OverwriteOnDate(ctx context.Context, userID, subjectID, date string, durationMinutes int, notes *string) (timeentry.TimeEntry, error)
	List(ctx context.Context, userID string, filter timeentry.ListFilter) ([]timeentry.TimeEntry, int, error)
	Update(ctx context.Context, userID, id string, req timeentry.UpdateTimeEntryRequest) (timeentry.TimeEntry, error)
	Delete(ctx context.Context, userID, id string) error
}

type SubjectResolver interface {
	GetByID(ctx context.Context, userID, id string) (subject.Subject, error)
	EnsureByName(ctx context.Context, userID, name string) (string, error)
}

type TimeEntriesHandler struct {
	repo     TimeEntriesStore
	subjects SubjectResolver
	cfg      config.Config
}

func NewTimeEntriesHandler(repo TimeEntriesStore, subjects SubjectResolver, cfg config.Config) *TimeEntriesHandler {
	return &TimeEntriesHandler{repo: repo, subjects: subjects, cfg: cfg}
}

// conflictDetails is what a 409 on a taken date carries back.
type conflictDetails struct {
	LatestEntry timeentry.TimeEntry `json:"latest_entry"`
	Hint        string              `json:"hint"`
}

const overwriteHint = "Retry with overwrite_latest_overlap=true to replace the latest entry on this date."

func (h *TimeEntriesHandler) Create(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Access token is required")
		return
	}

	var req timeentry.CreateTimeEntryRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	subjectID, ok := h.resolveSubject(ctx, cctx, userID, req.SubjectID, req.SubjectName)

	if !ok {
		return
	}

	date := h.resolveDate(req.Date)

	if req.OverwriteLatestOverlap {
		entry, err := h.repo.OverwriteOnDate(cctx, userID, subjectID, date, req.DurationMinutes, req.Notes)

		if err == nil {
			RespondData(ctx, http.StatusCreated, entry)
			return
		}

		// nothing on the date yet; fall through to a plain insert
		if !errors.Is(err, timeentry.ErrNotFound) {
			RespondInternal(ctx, "Could not create time entry")
			return
		}
	}

	entry, err := h.repo.Insert(cctx, userID, subjectID, date, req.DurationMinutes, req.Notes)

	if err != nil {
		var conflict *timeentry.ConflictError

		if errors.As(err, &conflict) {
			RespondConflict(ctx, "Latest entry exists on this date", conflictDetails{
				LatestEntry: conflict.Latest,
				Hint:        overwriteHint,
			})
			return
		}

		RespondInternal(ctx, "Could not create time entry")
		return
	}

	RespondData(ctx, http.StatusCreated, entry)
}

// resolveSubject turns the request's subject_id or subject_name into an
// owned subject id, writing the error response itself on failure.
func (h *TimeEntriesHandler) resolveSubject(ctx *gin.Context, cctx context.Context, userID string, subjectID, subjectName *string) (string, bool) {
	if subjectID != nil {
		if _, err := h.subjects.GetByID(cctx, userID, *subjectID); err != nil {
			if errors.Is(err, subject.ErrNotFound) {
				RespondNotFound(ctx, "Subject not found")
				return "", false
			}

			RespondInternal(ctx, "Could not resolve subject")
			return "", false
		}

		return *subjectID, true
	}

	if subjectName != nil {
		id, err := h.subjects.EnsureByName(cctx, userID, *subjectName)

		if err != nil {
			RespondInternal(ctx, "Could not resolve subject")
			return "", false
		}

		return id, true
	}

	RespondBadRequest(ctx, "Either subject_id or subject_name is required", nil)

	return "", false
}

func (h *TimeEntriesHandler) resolveDate(date *string) string {
	if date != nil {
		return *date
	}

	return time.Now().In(h.cfg.Location()).Format(dateLayout)
}

func (h *TimeEntriesHandler) List(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Access token is required")
		return
	}

	filter, ok := parseListFilter(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	entries, total, err := h.repo.List(cctx, userID, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list time entries")
		return
	}

	ctx.Header("X-Total-Count", strconv.Itoa(total))

	RespondData(ctx, http.StatusOK, entries)
}

func parseListFilter(ctx *gin.Context) (timeentry.ListFilter, bool) {
	filter := timeentry.ListFilter{Limit: defaultEntriesLimit}

	if raw := ctx.Query("start"); raw != "" {
		if _, err := time.Parse(dateLayout, raw); err != nil {
			RespondBadRequest(ctx, "start must be a YYYY-MM-DD date", nil)
			return filter, false
		}

		filter.Start = &raw
	}

	if raw := ctx.Query("end"); raw != "" {
		if _, err := time.Parse(dateLayout, raw); err != nil {
			RespondBadRequest(ctx, "end must be a YYYY-MM-DD date", nil)
			return filter, false
		}

		filter.End = &raw
	}

	if raw := ctx.Query("subject_id"); raw != "" {
		if !utils.IsUUID(raw) {
			RespondBadRequest(ctx, "subject_id must be a UUID", nil)
			return filter, false
		}

		filter.SubjectID = &raw
	}

	page := 1

	if raw := ctx.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)

		if err != nil || n < 1 {
			RespondBadRequest(ctx, "page must be a positive integer", nil)
			return filter, false
		}

		page = n
	}

	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)

		if err != nil || n < 1 {
			RespondBadRequest(ctx, "limit must be a positive integer", nil)
			return filter, false
		}

		if n > maxEntriesLimit {
			n = maxEntriesLimit
		}

		filter.Limit = n
	}

	filter.Offset = (page - 1) * filter.Limit

	return filter, true
}

func (h *TimeEntriesHandler) Get(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Access token is required")
		return
	}

	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Time entry not found")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	entry, err := h.repo.GetByID(cctx, userID, id)

	if err != nil {
		if errors.Is(err, timeentry.ErrNotFound) {
			RespondNotFound(ctx, "Time entry not found")
			return
		}

		RespondInternal(ctx, "Could not fetch time entry")
		return
	}

	RespondData(ctx, http.StatusOK, entry)
}

func (h *TimeEntriesHandler) Update(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Access token is required")
		return
	}

	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Time entry not found")
		return
	}

	var req timeentry.UpdateTimeEntryRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	// reassignment to another user's subject must read as absent
	if req.SubjectID != nil {
		if _, err := h.subjects.GetByID(cctx, userID, *req.SubjectID); err != nil {
			if errors.Is(err, subject.ErrNotFound) {
				RespondNotFound(ctx, "Subject not found")
				return
			}

			RespondInternal(ctx, "Could not update time entry")
			return
		}
	}

	entry, err := h.repo.Update(cctx, userID, id, req)

	if err != nil {
		var conflict *timeentry.ConflictError

		switch {
		case errors.Is(err, timeentry.ErrNotFound):
			RespondNotFound(ctx, "Time entry not found")
		case errors.As(err, &conflict):
			RespondConflict(ctx, "Latest entry exists on this date", conflictDetails{
				LatestEntry: conflict.Latest,
				Hint:        overwriteHint,
			})
		default:
			RespondInternal(ctx, "Could not update time entry")
		}
		return
	}

	RespondData(ctx, http.StatusOK, entry)
}

func (h *TimeEntriesHandler) Delete(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Access token is required")
		return
	}

	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Time entry not found")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	err := h.repo.Delete(cctx, userID, id)

	if err != nil {
		if errors.Is(err, timeentry.ErrNotFound) {
			RespondNotFound(ctx, "Time entry not found")
			return
		}

		RespondInternal(ctx, "Could not delete time entry")
		return
	}

	ctx.Status(http.StatusNoContent)
}
