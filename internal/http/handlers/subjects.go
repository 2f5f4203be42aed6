package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/chronolog/internal/config"
	"github.com/geocoder89/chronolog/internal/domain/subject"
	"github.com/geocoder89/chronolog/internal/http/middlewares"
	"github.com/geocoder89/chronolog/internal/utils"
	"github.com/gin-gonic/gin"
)

type SubjectsStore interface {
	ListByUser(ctx context.Context, userID string) ([]subject.Subject, error)
	Create(ctx context.Context, userID, name string, color *string) (subject.Subject, error)
	GetByID(ctx context.Context, userID, id string) (subject.Subject, error)
	Rename(ctx context.Context, userID, id, newName string) (subject.Subject, error)
	Join(ctx context.Context, userID, sourceID, targetID string, deleteSource bool) (subject.JoinResult, error)
}

type SubjectsHandler struct {
	repo SubjectsStore
}

func NewSubjectsHandler(repo SubjectsStore) *SubjectsHandler {
	return &SubjectsHandler{repo: repo}
}

func (h *SubjectsHandler) List(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Access token is required")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	subjects, err := h.repo.ListByUser(cctx, userID)

	if err != nil {
		RespondInternal(ctx, "Could not list subjects")
		return
	}

	RespondDataWithETag(ctx, http.StatusOK, subjects)
}

func (h *SubjectsHandler) Create(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Access token is required")
		return
	}

	var req subject.CreateSubjectRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	s, err := h.repo.Create(cctx, userID, req.Name, req.Color)

	if err != nil {
		if errors.Is(err, subject.ErrNameTaken) {
			RespondConflict(ctx, "Subject name already exists", nil)
			return
		}

		RespondInternal(ctx, "Could not create subject")
		return
	}

	RespondData(ctx, http.StatusCreated, s)
}

func (h *SubjectsHandler) Rename(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Access token is required")
		return
	}

	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Subject not found")
		return
	}

	var req subject.RenameSubjectRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	s, err := h.repo.Rename(cctx, userID, id, req.NewName)

	if err != nil {
		switch {
		case errors.Is(err, subject.ErrNotFound):
			RespondNotFound(ctx, "Subject not found")
		case errors.Is(err, subject.ErrNameTaken):
			RespondConflict(ctx, "Subject name already exists", nil)
		default:
			RespondInternal(ctx, "Could not rename subject")
		}
		return
	}

	RespondData(ctx, http.StatusOK, s)
}

// Join reassigns every entry from the source subject to the target and,
// unless delete_source=false, removes the source.
func (h *SubjectsHandler) Join(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Access token is required")
		return
	}

	var req subject.JoinSubjectsRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.SourceSubjectID == req.TargetSubjectID {
		RespondBadRequest(ctx, "Source and target cannot be the same", nil)
		return
	}

	deleteSource := true

	if req.DeleteSource != nil {
		deleteSource = *req.DeleteSource
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	// ownership checks up front so the error names the missing side
	if _, err := h.repo.GetByID(cctx, userID, req.SourceSubjectID); err != nil {
		if errors.Is(err, subject.ErrNotFound) {
			RespondNotFound(ctx, "Source subject not found")
			return
		}

		RespondInternal(ctx, "Could not join subjects")
		return
	}

	if _, err := h.repo.GetByID(cctx, userID, req.TargetSubjectID); err != nil {
		if errors.Is(err, subject.ErrNotFound) {
			RespondNotFound(ctx, "Target subject not found")
			return
		}

		RespondInternal(ctx, "Could not join subjects")
		return
	}

	result, err := h.repo.Join(cctx, userID, req.SourceSubjectID, req.TargetSubjectID, deleteSource)

	if err != nil {
		RespondInternal(ctx, "Could not join subjects")
		return
	}

	RespondData(ctx, http.StatusOK, result)
}
