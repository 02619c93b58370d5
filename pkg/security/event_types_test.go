package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventTypes(t *testing.T) {
	for _, et := range ValidEventTypes() {
		assert.True(t, IsValidEventType(et), et)
	}
	assert.False(t, IsValidEventType("password_reset_requested"))

	got, err := ParseEventType(EventTypeTokenRejected)
	assert.NoError(t, err)
	assert.Equal(t, "token_rejected", got)
}

func TestSeverities(t *testing.T) {
	for _, s := range ValidSeverities() {
		assert.True(t, IsValidSeverity(s), s)
	}
	_, err := ParseSeverity("catastrophic")
	assert.Error(t, err)
}
