package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"pickup-backend/internal/middleware"
	"pickup-backend/internal/xerrors"
)

func handlePanic(c *gin.Context, logger *zap.Logger, route string) {
	if r := recover(); r != nil {
		logger.Error("panic recovered", zap.String("route", route), zap.Any("panic", r), zap.String("requestId", c.GetString(middleware.ContextRequestID)))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func respondWithError(c *gin.Context, logger *zap.Logger, status int, route string, message string) {
	logger.Debug("returning error", zap.String("route", route), zap.Int("status", status), zap.String("error", message))
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// respondServiceError maps typed failures to HTTP statuses. Anything untyped
// is logged and reported as an opaque 500.
func respondServiceError(c *gin.Context, logger *zap.Logger, route string, err error) {
	var typed *xerrors.Error
	if !errors.As(err, &typed) {
		logger.Error("unexpected failure",
			zap.String("route", route),
			zap.String("requestId", c.GetString(middleware.ContextRequestID)),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch typed.Kind {
	case xerrors.KindValidation:
		status = http.StatusBadRequest
	case xerrors.KindAuth:
		status = http.StatusUnauthorized
		if errors.Is(err, xerrors.ErrEmailTaken) {
			status = http.StatusConflict
		}
	case xerrors.KindNotFound:
		status = http.StatusNotFound
	case xerrors.KindUpstream:
		status = http.StatusBadGateway
	}

	body := gin.H{"error": typed.Message}
	if len(typed.Details) > 0 {
		body["details"] = typed.Details
	}
	logger.Debug("service error", zap.String("route", route), zap.Int("status", status), zap.String("kind", string(typed.Kind)))
	c.AbortWithStatusJSON(status, body)
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": []string{err.Error()}})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
