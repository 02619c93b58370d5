// internal/middleware/auth.go
package middleware

import (
	"context"
	"net/http"

	"github.com/gurkanbulca/barakaflow/pkg/auth"
)

// RejectionLogger records rejected credentials.
type RejectionLogger interface {
	LogTokenRejected(ctx context.Context, reason string)
}

// Authenticator provides authentication middleware
type Authenticator struct {
	tokenManager *auth.TokenManager
	rejections   RejectionLogger
}

// NewAuthenticator creates a new authenticator. rejections may be nil.
func NewAuthenticator(tokenManager *auth.TokenManager, rejections RejectionLogger) *Authenticator {
	return &Authenticator{
		tokenManager: tokenManager,
		rejections:   rejections,
	}
}

// RequireAuth rejects requests without a valid bearer token. Every failure
// produces the same 401 body so clients cannot tell the causes apart.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Authorization")

		claims, err := a.authenticate(r)
		if err != nil {
			if a.rejections != nil {
				a.rejections.LogTokenRejected(r.Context(), err.Error())
			}
			WriteUnauthenticated(w)
			return
		}

		ctx := WithUser(r.Context(), claims.UserID, claims.Email, claims.Name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate extracts and validates the JWT token from the request
func (a *Authenticator) authenticate(r *http.Request) (*auth.CustomClaims, error) {
	token, err := auth.ExtractTokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}
	return a.tokenManager.ValidateToken(token)
}

// WriteUnauthenticated writes the uniform 401 response.
func WriteUnauthenticated(w http.ResponseWriter) {
	writeJSONError(w, http.StatusUnauthorized, "unauthenticated")
}
