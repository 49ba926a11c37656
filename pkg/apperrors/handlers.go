package apperrors

import (
	"errors"

	"nutriplan_backend/internal/logger"

	"github.com/gin-gonic/gin"
)

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Error     *AppError `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
}

// debugMode управляет тем, видит ли клиент текст внутренних ошибок
var debugMode = false

// SetDebug включается из app.Run для окружения development
func SetDebug(debug bool) {
	debugMode = debug
}

// HandleError пишет ошибку в ответ. Всё, что не AppError, становится 500.
func HandleError(c *gin.Context, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		appErr = InternalError(err)
		if debugMode {
			appErr = appErr.WithDetails(gin.H{"cause": err.Error()})
		}
	}

	if appErr.HTTPCode >= 500 {
		logger.CtxError(c.Request.Context(), "server error",
			"code", appErr.Code,
			"path", c.Request.URL.Path,
			"error", appErr.Error(),
		)
	}

	c.AbortWithStatusJSON(appErr.HTTPCode, ErrorResponse{
		Error:     appErr,
		RequestID: logger.RequestID(c.Request.Context()),
	})
}

// AsAppError - пытается преобразовать error в *AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HandleValidationError - ошибка биндинга gin (битый JSON и т.п.)
func HandleValidationError(c *gin.Context, err error) {
	HandleError(c, ValidationError(gin.H{"body": err.Error()}))
}
