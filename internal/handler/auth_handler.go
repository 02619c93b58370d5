// internal/handler/auth_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gurkanbulca/barakaflow/internal/middleware"
	"github.com/gurkanbulca/barakaflow/internal/models"
	"github.com/gurkanbulca/barakaflow/internal/service"
	"github.com/gurkanbulca/barakaflow/pkg/auth"
)

type authResponse struct {
	Message   string            `json:"message"`
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      models.PublicUser `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	v := &models.ValidationError{}
	middleware.CheckLength(v, "email", req.Email, h.limits.MaxEmailLength)
	middleware.CheckLength(v, "name", req.Name, h.limits.MaxNameLength)
	if v.HasErrors() {
		h.writeError(w, r, v)
		return
	}

	res, err := h.auth.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{
		Message:   "User registered successfully",
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      res.User,
	})
}

// Login handles user login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		Message:   "Login successful",
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      res.User,
	})
}

// Verify resolves the bearer token to its user. Tokens of deleted users are
// rejected like any other invalid token.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	token, err := auth.ExtractTokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		middleware.WriteUnauthenticated(w)
		return
	}
	user, err := h.auth.Verify(r.Context(), token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
