package handlers

import (
	"github.com/geocoder89/chronolog/internal/apperr"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

// RespondData wraps every success payload in the same envelope.
func RespondData(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, gin.H{"data": data})
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

// RespondAppError translates any error into the envelope. Errors outside
// the apperr taxonomy become INTERNAL with the original message logged
// upstream, never leaked to the client.
func RespondAppError(ctx *gin.Context, err error) {
	appErr, ok := apperr.From(err)

	if !ok {
		appErr = apperr.Internal("Internal server error")
	}

	RespondError(ctx, appErr.HTTPStatus(), string(appErr.Kind), appErr.Message, appErr.Details)
}

// The shorthand helpers below all funnel through RespondAppError, so
// every error a handler emits is built from the apperr taxonomy.

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondAppError(ctx, apperr.BadRequest(message).WithDetails(details))
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondAppError(ctx, apperr.Unauthorized(message))
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondAppError(ctx, apperr.NotFound(message))
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondAppError(ctx, apperr.Internal(message))
}

func RespondConflict(ctx *gin.Context, message string, details interface{}) {
	RespondAppError(ctx, apperr.Conflict(message).WithDetails(details))
}
