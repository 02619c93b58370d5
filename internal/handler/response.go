// internal/handler/response.go
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/gurkanbulca/barakaflow/internal/middleware"
	"github.com/gurkanbulca/barakaflow/internal/models"
	"github.com/gurkanbulca/barakaflow/internal/service"
	"github.com/gurkanbulca/barakaflow/pkg/assist"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

var errBodyTooLarge = errors.New("request body too large")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON value from the body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return errBodyTooLarge
		case errors.Is(err, io.EOF):
			return models.NewValidationError("body", "request body is required")
		default:
			return models.NewValidationError("body", "invalid JSON body")
		}
	}
	if dec.More() {
		return models.NewValidationError("body", "request body must contain a single JSON object")
	}
	return nil
}

// writeError maps service errors to HTTP responses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var v *models.ValidationError
	switch {
	case errors.As(err, &v):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Validation failed", Fields: v.Fields})
	case errors.Is(err, errBodyTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Request body too large"})
	case errors.Is(err, service.ErrEmailTaken):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "User with this email already exists"})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid email or password"})
	case errors.Is(err, service.ErrUnauthenticated):
		middleware.WriteUnauthenticated(w)
	case errors.Is(err, service.ErrTaskNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Task not found"})
	case errors.Is(err, models.ErrUpdateNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Update not found"})
	case errors.Is(err, service.ErrAssistantUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "AI assistant is not configured"})
	case errors.Is(err, assist.ErrInvalidResponse):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "Invalid response from AI. Please try again."})
	case errors.Is(err, service.ErrAssistantFailed):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "AI request failed. Please try again."})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "Request timed out. Please try again."})
	case errors.Is(err, context.Canceled):
		h.logger.Debug("request canceled by client", zap.String("path", r.URL.Path))
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
}
