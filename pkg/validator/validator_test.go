package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "jane.doe-01", false},
		{"empty", "", true},
		{"too short", "ab", true},
		{"too long", strings.Repeat("a", 51), true},
		{"space", "jane doe", true},
		{"at sign", "jane@doe", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Username(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEmail(t *testing.T) {
	assert.NoError(t, Email("ops@example.com"))
	assert.Error(t, Email(""))
	assert.Error(t, Email("ops@example"))
}

func TestPassword(t *testing.T) {
	assert.NoError(t, Password("12345678"))
	assert.Error(t, Password("1234567"))
	assert.Error(t, Password(strings.Repeat("x", 129)))
}

func TestAccessTokenName(t *testing.T) {
	assert.NoError(t, AccessTokenName("ci pipeline"))
	assert.Error(t, AccessTokenName(""))
	assert.Error(t, AccessTokenName(strings.Repeat("n", 256)))
	assert.Error(t, AccessTokenName("bad\nname"))
}
