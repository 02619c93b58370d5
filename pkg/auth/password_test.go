package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordManager(t *testing.T) {
	pm := NewPasswordManagerWithCost(6, bcrypt.MinCost)

	hash, err := pm.HashPassword("secret1")
	require.NoError(t, err)
	assert.NoError(t, pm.ComparePassword(hash, "secret1"))
	assert.Error(t, pm.ComparePassword(hash, "secret2"))

	_, err = pm.HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = pm.HashPassword(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestDefaultPasswordManager(t *testing.T) {
	pm := NewPasswordManager()
	assert.Equal(t, 6, pm.minLength)
	assert.Equal(t, 10, pm.cost)
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"amina@example.com", true},
		{"a.b+c@sub.example.co", true},
		{"no-at-sign.com", false},
		{"missing@tld", false},
		{"spa ce@example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidEmail)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "amina@example.com", NormalizeEmail("  Amina@Example.COM "))
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Amina"))
	assert.Error(t, ValidateName("   "))
	assert.Error(t, ValidateName(strings.Repeat("n", 101)))
}
