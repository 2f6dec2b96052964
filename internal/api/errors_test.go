package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/jiralike-api/internal/api/shared"
	"github.com/phrazzld/jiralike-api/internal/domain"
	"github.com/phrazzld/jiralike-api/internal/service"
	"github.com/phrazzld/jiralike-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"token not yet valid", auth.ErrTokenNotYetValid, http.StatusUnauthorized},
		{"wrong token type", auth.ErrWrongTokenType, http.StatusUnauthorized},
		{"missing token", auth.ErrMissingToken, http.StatusUnauthorized},
		{"no actor", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"not owner", service.ErrNotTaskOwner, http.StatusForbidden},
		{"not superuser", service.ErrNotSuperuser, http.StatusForbidden},
		{"task closed", service.ErrTaskClosed, http.StatusForbidden},
		{"task not found", service.ErrTaskNotFound, http.StatusNotFound},
		{"file not found", service.ErrFileNotFound, http.StatusNotFound},
		{"user not found", service.ErrUserNotFound, http.StatusNotFound},
		{"already closed", service.ErrTaskAlreadyClosed, http.StatusConflict},
		{"email taken", service.ErrEmailTaken, http.StatusConflict},
		{"validation", domain.ErrValidation, http.StatusBadRequest},
		{"field validation", domain.NewValidationError("headline", "is required", nil), http.StatusBadRequest},
		{"invalid id", domain.ErrInvalidID, http.StatusBadRequest},
		{"validator", shared.ValidateRequest(CreateTaskRequest{}), http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("load: %w", service.ErrTaskNotFound), http.StatusNotFound},
		{
			"service error",
			service.NewTaskServiceError("close_task", "failed", errors.New("boom")),
			http.StatusInternalServerError,
		},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil", nil, "An unexpected error occurred"},
		{"expired token", auth.ErrExpiredToken, "Token expired"},
		{"invalid token", auth.ErrInvalidToken, "Invalid token"},
		{"no actor", domain.ErrUnauthorized, "Authentication required"},
		{"bad credentials", service.ErrInvalidCredentials, "Invalid credentials"},
		{"not owner", service.ErrNotTaskOwner, "Only the task owner can close it"},
		{"not superuser", service.ErrNotSuperuser, "Only a superuser can delete tasks"},
		{"task closed", service.ErrTaskClosed, "Task is closed"},
		{"task not found", service.ErrTaskNotFound, "Task not found"},
		{"file not found", service.ErrFileNotFound, "File not found"},
		{"already closed", service.ErrTaskAlreadyClosed, "Task is already closed"},
		{"email taken", service.ErrEmailTaken, "Email already exists"},
		{"validation", domain.NewValidationError("text", "is required", nil), "Validation error"},
		{"invalid id", domain.ErrInvalidID, "Invalid ID"},
		{"unknown", errors.New("pq: relation \"tasks\" does not exist"), "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestHandleAPIError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		fallback       string
		expectedStatus int
		expectedError  string
		expectedFields map[string]string
	}{
		{
			name:           "field validation error",
			err:            domain.NewValidationError("headline", "is required", nil),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Validation error",
			expectedFields: map[string]string{"headline": "is required"},
		},
		{
			name:           "validator errors use json names",
			err:            shared.ValidateRequest(CreateCommentRequest{}),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Validation error",
			expectedFields: map[string]string{"text": "is required"},
		},
		{
			name:           "not found",
			err:            service.ErrTaskNotFound,
			fallback:       "Failed to get task",
			expectedStatus: http.StatusNotFound,
			expectedError:  "Task not found",
		},
		{
			name:           "internal error uses fallback",
			err:            errors.New("dial tcp 10.0.0.5:5432: connection refused"),
			fallback:       "Failed to get task",
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Failed to get task",
		},
		{
			name:           "internal error without fallback",
			err:            errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			req = req.WithContext(shared.SetTraceID(req.Context()))
			rr := httptest.NewRecorder()

			HandleAPIError(rr, req, tt.err, tt.fallback)

			assert.Equal(t, tt.expectedStatus, rr.Code)

			var body shared.ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedError, body.Error)
			assert.Equal(t, tt.expectedFields, body.Fields)
			assert.Len(t, body.TraceID, shared.TraceIDLength*2)
			assert.NotContains(t, rr.Body.String(), tt.err.Error())
		})
	}
}
