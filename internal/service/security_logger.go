// internal/service/security_logger.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gurkanbulca/barakaflow/internal/middleware"
	"github.com/gurkanbulca/barakaflow/pkg/security"
)

const (
	defaultAlertThreshold = 5
	defaultAlertWindow    = 5 * time.Minute
)

// SecurityLogger provides convenience methods for logging security events
type SecurityLogger struct {
	logger *zap.Logger

	// Repeated auth failures from one IP inside alertWindow raise an alert.
	alertThreshold int
	alertWindow    time.Duration
	now            func() time.Time

	mu       sync.Mutex
	failures map[string]*failureWindow
}

type failureWindow struct {
	count int
	since time.Time
}

// NewSecurityLogger creates a new security logger
func NewSecurityLogger(logger *zap.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger:         logger.Named("security"),
		alertThreshold: defaultAlertThreshold,
		alertWindow:    defaultAlertWindow,
		now:            time.Now,
		failures:       make(map[string]*failureWindow),
	}
}

// LogFromContext logs a security event using context information. Unknown
// severities are logged as high.
func (sl *SecurityLogger) LogFromContext(ctx context.Context, userID, eventType, description, severity string) {
	clientInfo := middleware.GetClientInfoFromContext(ctx)
	if userID == "" {
		userID = clientInfo.UserID
	}

	if !security.IsValidEventType(eventType) {
		sl.logger.Warn("unknown security event type", zap.String("event_type", eventType))
	}
	if !security.IsValidSeverity(severity) {
		severity = security.SeverityHigh
	}

	fields := []zap.Field{
		zap.String("event_type", eventType),
		zap.String("severity", severity),
		zap.String("ip", clientInfo.IPAddress),
		zap.String("user_agent", clientInfo.UserAgent),
	}
	if userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}

	if ce := sl.logger.Check(severityLevel(severity), description); ce != nil {
		ce.Write(fields...)
	}
}

func severityLevel(severity string) zapcore.Level {
	switch severity {
	case security.SeverityLow:
		return zap.InfoLevel
	case security.SeverityMedium:
		return zap.WarnLevel
	default:
		return zap.ErrorLevel
	}
}

// Convenience methods for common security events

func (sl *SecurityLogger) LogRegistered(ctx context.Context, userID string) {
	sl.LogFromContext(ctx, userID, security.EventTypeUserRegistered,
		"User registered", security.SeverityLow)
}

func (sl *SecurityLogger) LogRegistrationFailed(ctx context.Context, email, reason string) {
	sl.LogFromContext(ctx, "", security.EventTypeRegistrationError,
		"Registration failed for "+email+": "+reason, security.SeverityLow)
}

func (sl *SecurityLogger) LogLoginSuccess(ctx context.Context, userID string) {
	sl.LogFromContext(ctx, userID, security.EventTypeLoginSuccess,
		"User successfully logged in", security.SeverityLow)
}

func (sl *SecurityLogger) LogLoginFailed(ctx context.Context, email, reason string) {
	sl.LogFromContext(ctx, "", security.EventTypeLoginFailed,
		"Login failed for "+email+": "+reason, security.SeverityMedium)
	sl.recordFailure(ctx)
}

// LogTokenRejected implements middleware.RejectionLogger.
func (sl *SecurityLogger) LogTokenRejected(ctx context.Context, reason string) {
	sl.LogFromContext(ctx, "", security.EventTypeTokenRejected,
		"Bearer token rejected: "+reason, security.SeverityMedium)
	sl.recordFailure(ctx)
}

// LogRateLimited implements middleware.RateLimitLogger.
func (sl *SecurityLogger) LogRateLimited(ctx context.Context, ip string) {
	sl.LogFromContext(ctx, "", security.EventTypeRateLimited,
		"Rate limit exceeded for "+ip, security.SeverityMedium)
}

func (sl *SecurityLogger) LogSecurityAlert(ctx context.Context, userID, description string) {
	sl.LogFromContext(ctx, userID, security.EventTypeSecurityAlert,
		description, security.SeverityCritical)
}

// recordFailure counts a failed login or rejected token against the client IP
// and raises one alert per window once the threshold is reached.
func (sl *SecurityLogger) recordFailure(ctx context.Context) {
	ip := middleware.GetIPAddressFromContext(ctx)
	if ip == "" {
		return
	}
	now := sl.now()

	sl.mu.Lock()
	w, ok := sl.failures[ip]
	if !ok || now.Sub(w.since) > sl.alertWindow {
		w = &failureWindow{since: now}
		sl.failures[ip] = w
	}
	w.count++
	count := w.count
	if len(sl.failures) > 1024 {
		for k, v := range sl.failures {
			if now.Sub(v.since) > sl.alertWindow {
				delete(sl.failures, k)
			}
		}
	}
	sl.mu.Unlock()

	if count == sl.alertThreshold {
		sl.LogSecurityAlert(ctx, "", fmt.Sprintf("%d authentication failures from %s within %s",
			count, ip, sl.alertWindow))
	}
}
