// internal/middleware/validation.go
package middleware

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"unicode/utf8"

	"github.com/gurkanbulca/barakaflow/internal/models"
)

// ValidationConfig holds validation configuration
type ValidationConfig struct {
	MaxBodyBytes         int64
	MaxNameLength        int
	MaxEmailLength       int
	MaxTitleLength       int
	MaxDescriptionLength int
	MaxOwnerLength       int
	MaxContentLength     int
	MaxMessageLength     int
}

// DefaultValidationConfig returns default validation configuration
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		MaxBodyBytes:         1 << 20,
		MaxNameLength:        100,
		MaxEmailLength:       255,
		MaxTitleLength:       models.MaxTitleLength,
		MaxDescriptionLength: 5000,
		MaxOwnerLength:       100,
		MaxContentLength:     2000,
		MaxMessageLength:     4000,
	}
}

// RequestValidator rejects oversized or non-JSON request bodies before they
// reach the handlers.
type RequestValidator struct {
	config *ValidationConfig
}

// NewRequestValidator creates a new request validator
func NewRequestValidator(config *ValidationConfig) *RequestValidator {
	if config == nil {
		config = DefaultValidationConfig()
	}
	return &RequestValidator{config: config}
}

// Config returns the limits the validator enforces.
func (v *RequestValidator) Config() *ValidationConfig {
	return v.config
}

// Middleware limits body size and requires a JSON content type on requests
// that carry a body.
func (v *RequestValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength != 0 && hasBody(r.Method) {
			if ct := r.Header.Get("Content-Type"); ct != "" {
				mt, _, err := mime.ParseMediaType(ct)
				if err != nil || mt != "application/json" {
					writeJSONError(w, http.StatusUnsupportedMediaType, "content type must be application/json")
					return
				}
			}
		}
		r.Body = http.MaxBytesReader(w, r.Body, v.config.MaxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

// CheckLength records a field error when value exceeds max characters.
func CheckLength(v *models.ValidationError, field, value string, max int) {
	if max > 0 && utf8.RuneCountInString(value) > max {
		v.Add(field, fmt.Sprintf("%s too long (max %d characters)", field, max))
	}
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
