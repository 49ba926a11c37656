package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"nutriplan_backend/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_IsMatchesCopies(t *testing.T) {
	cause := errors.New("record not found")
	err := fmt.Errorf("load plan: %w", ErrPlanNotFound.WithError(cause))

	assert.ErrorIs(t, err, ErrPlanNotFound)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrUserNotFound)

	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPCode)
	assert.Contains(t, appErr.Error(), "record not found")
}

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		debug      bool
		wantStatus int
		wantCode   ErrorCode
		wantCause  bool
	}{
		{name: "app error", err: ErrNutritionPlanLimit, wantStatus: http.StatusForbidden, wantCode: CodeLimitExceeded},
		{name: "validation", err: ValidationError(map[string]string{"plan_date": "required"}), wantStatus: http.StatusBadRequest, wantCode: CodeValidationFailed},
		{name: "plain error hidden", err: errors.New("pq: connection refused"), wantStatus: http.StatusInternalServerError, wantCode: CodeInternalError},
		{name: "plain error in debug", err: errors.New("pq: connection refused"), debug: true, wantStatus: http.StatusInternalServerError, wantCode: CodeInternalError, wantCause: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetDebug(tt.debug)
			defer SetDebug(false)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request = req.WithContext(logger.WithRequestID(req.Context(), "req-42"))

			HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)

			var body struct {
				RequestID string `json:"request_id"`
				Error     struct {
					Code    ErrorCode              `json:"code"`
					Message string                 `json:"message"`
					Details map[string]interface{} `json:"details"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, "req-42", body.RequestID)
			assert.NotContains(t, body.Error.Message, "connection refused")
			if tt.wantCause {
				assert.Equal(t, "pq: connection refused", body.Error.Details["cause"])
			}
		})
	}
}
