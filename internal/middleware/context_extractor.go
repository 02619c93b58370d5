// internal/middleware/context_extractor.go
package middleware

import (
	"context"
	"net"
	"net/http"
)

// ContextKeys for storing request metadata
type ContextKey string

const (
	ContextKeyIPAddress ContextKey = "ip_address"
	ContextKeyUserAgent ContextKey = "user_agent"
	ContextKeyUserID    ContextKey = "user_id"
	ContextKeyUserEmail ContextKey = "user_email"
	ContextKeyUserName  ContextKey = "user_name"
)

// ExtractClientInfo adds the client IP address and user agent to the request context.
func ExtractClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if ip := ClientIP(r); ip != "" {
			ctx = context.WithValue(ctx, ContextKeyIPAddress, ip)
		}
		if ua := r.UserAgent(); ua != "" {
			ctx = context.WithValue(ctx, ContextKeyUserAgent, ua)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the host part of r.RemoteAddr. Forwarded headers are not
// read here; deployments behind a proxy mount chi's RealIP first, which
// rewrites RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr // Return as-is if parsing fails
	}
	return host
}

// GetIPAddressFromContext extracts IP address from context
func GetIPAddressFromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyIPAddress).(string); ok {
		return ip
	}
	return ""
}

// GetUserAgentFromContext extracts user agent from context
func GetUserAgentFromContext(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// GetUserIDFromContext extracts user ID from context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(ContextKeyUserID).(string)
	return userID, ok && userID != ""
}

// GetUserEmailFromContext extracts user email from context
func GetUserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(ContextKeyUserEmail).(string)
	return email, ok
}

// GetUserNameFromContext extracts the user's display name from context
func GetUserNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(ContextKeyUserName).(string)
	return name, ok
}

type userHolderKey struct{}

type userHolder struct{ id string }

func withUserHolder(ctx context.Context, h *userHolder) context.Context {
	return context.WithValue(ctx, userHolderKey{}, h)
}

// WithUser returns ctx carrying the authenticated user.
func WithUser(ctx context.Context, id, email, name string) context.Context {
	if h, ok := ctx.Value(userHolderKey{}).(*userHolder); ok {
		h.id = id
	}
	ctx = context.WithValue(ctx, ContextKeyUserID, id)
	ctx = context.WithValue(ctx, ContextKeyUserEmail, email)
	return context.WithValue(ctx, ContextKeyUserName, name)
}

// ClientInfo holds the request metadata used for logging.
type ClientInfo struct {
	IPAddress string
	UserAgent string
	UserID    string
	UserEmail string
}

// GetClientInfoFromContext extracts all client information from context
func GetClientInfoFromContext(ctx context.Context) *ClientInfo {
	info := &ClientInfo{
		IPAddress: GetIPAddressFromContext(ctx),
		UserAgent: GetUserAgentFromContext(ctx),
	}

	if userID, ok := GetUserIDFromContext(ctx); ok {
		info.UserID = userID
	}

	if email, ok := GetUserEmailFromContext(ctx); ok {
		info.UserEmail = email
	}

	return info
}
