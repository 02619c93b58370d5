// pkg/security/event_types.go
package security

import (
	"fmt"
)

// EventType constants for string-based event type handling
const (
	EventTypeUserRegistered    = "user_registered"
	EventTypeLoginSuccess      = "login_success"
	EventTypeLoginFailed       = "login_failed"
	EventTypeTokenRejected     = "token_rejected"
	EventTypeRegistrationError = "registration_failed"
	EventTypeRateLimited       = "rate_limited"
	EventTypeSecurityAlert     = "security_alert"
)

// Severity constants for string-based severity handling
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// ValidEventTypes returns all valid event type strings
func ValidEventTypes() []string {
	return []string{
		EventTypeUserRegistered,
		EventTypeLoginSuccess,
		EventTypeLoginFailed,
		EventTypeTokenRejected,
		EventTypeRegistrationError,
		EventTypeRateLimited,
		EventTypeSecurityAlert,
	}
}

// ValidSeverities returns all valid severity strings
func ValidSeverities() []string {
	return []string{
		SeverityLow,
		SeverityMedium,
		SeverityHigh,
		SeverityCritical,
	}
}

// ParseEventType validates an event type string.
func ParseEventType(eventType string) (string, error) {
	for _, v := range ValidEventTypes() {
		if v == eventType {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown event type: %s", eventType)
}

// ParseSeverity validates a severity string.
func ParseSeverity(severity string) (string, error) {
	for _, v := range ValidSeverities() {
		if v == severity {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown severity: %s", severity)
}

// IsValidEventType checks if the event type string is valid
func IsValidEventType(eventType string) bool {
	_, err := ParseEventType(eventType)
	return err == nil
}

// IsValidSeverity checks if the severity string is valid
func IsValidSeverity(severity string) bool {
	_, err := ParseSeverity(severity)
	return err == nil
}
