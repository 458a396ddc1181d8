package middleware

import (
	"errors"
	"net/http"

	"birthday-memory-app/internal/services"
	"birthday-memory-app/internal/transport/httpdto"
	app_errors "birthday-memory-app/pkg/errors"
	"birthday-memory-app/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error a handler attached with c.Error as
// the JSON envelope. Causes are only exposed when exposeDetails is set.
func ErrorHandler(l *logger.Logger, exposeDetails bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, body := ErrorEnvelope(err)
		if exposeDetails {
			body.Error = err.Error()
		}
		if l != nil && status >= http.StatusInternalServerError {
			l.Error(c.Request.Context(), "request failed", zap.Error(err))
		}
		c.JSON(status, body)
	}
}

// ErrorEnvelope maps an error onto its HTTP status and envelope.
func ErrorEnvelope(err error) (int, httpdto.ErrorResponse) {
	var batch *services.BatchError
	if errors.As(err, &batch) {
		body := httpdto.NewErrorResponse("file upload failed", httpdto.CodeUploadFailed)
		body.Data = httpdto.BatchFailure{Items: batch.Items}
		return http.StatusInternalServerError, body
	}

	switch app_errors.KindOf(err) {
	case app_errors.KindValidation:
		return http.StatusBadRequest, httpdto.NewErrorResponse(app_errors.MessageOf(err, "invalid request"), httpdto.CodeBadRequest)
	case app_errors.KindNotFound:
		return http.StatusNotFound, httpdto.NewErrorResponse(app_errors.MessageOf(err, "resource not found"), httpdto.CodeNotFound)
	case app_errors.KindRateLimited:
		return http.StatusTooManyRequests, httpdto.NewErrorResponse(app_errors.MessageOf(err, "too many requests, please try again later"), httpdto.CodeRateLimited)
	case app_errors.KindStorage:
		return http.StatusInternalServerError, httpdto.NewErrorResponse(app_errors.MessageOf(err, "storage error"), httpdto.CodeStorage)
	}
	return http.StatusInternalServerError, httpdto.NewErrorResponse(app_errors.MessageOf(err, "internal server error"), httpdto.CodeInternal)
}

// Recovery converts panics into the 500 envelope.
func Recovery(l *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if l != nil {
			l.Error(c.Request.Context(), "panic recovered", zap.Any("panic", recovered))
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal server error", httpdto.CodeInternal))
	})
}
