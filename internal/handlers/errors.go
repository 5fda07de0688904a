package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/services"
)

var kindStatus = map[services.ErrorKind]int{
	services.KindInput:      http.StatusBadRequest,
	services.KindAuth:       http.StatusUnauthorized,
	services.KindConflict:   http.StatusConflict,
	services.KindNotFound:   http.StatusNotFound,
	services.KindUpstream:   http.StatusServiceUnavailable,
	services.KindValidation: http.StatusBadRequest,
	services.KindInternal:   http.StatusInternalServerError,
}

const genericErrorMessage = "Something went wrong. Please try again later."

// respondError writes the error body for err. Internal failures are logged
// with their cause and shown to the caller as a generic message.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	var appErr *services.AppError
	if !errors.As(err, &appErr) {
		appErr = services.NewInternalError(genericErrorMessage, err)
	}
	status, ok := kindStatus[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	msg := appErr.Message
	if status >= http.StatusInternalServerError && appErr.Kind == services.KindInternal {
		log.Error("Request failed", "path", c.FullPath(), "code", appErr.Code, "error", err)
		msg = genericErrorMessage
	} else if status >= http.StatusInternalServerError {
		log.Warn("Upstream failure", "path", c.FullPath(), "code", appErr.Code, "error", err)
	}

	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": appErr.Code})
}
