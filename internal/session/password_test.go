package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword_Valid(t *testing.T) {
	assert.Nil(t, ValidatePassword("Tr3s-Long!Secret"))
}

func TestValidatePassword_CollectsAllViolations(t *testing.T) {
	err := ValidatePassword("short")

	require.NotNil(t, err)
	// too short, no upper, no digit, no special
	assert.Len(t, err.Errors, 4)
}

func TestValidatePassword_Cases(t *testing.T) {
	cases := []struct {
		name string
		pw   string
		want string
	}{
		{"too short", "Ab1!x", "at least 12 characters"},
		{"no lowercase", "ABCDEFGH123!", "at least one lowercase letter"},
		{"no uppercase", "abcdefgh123!", "at least one uppercase letter"},
		{"no digit", "Abcdefghijk!", "at least one digit"},
		{"no special", "Abcdefghijk1", "at least one special character"},
		{"has space", "Abcdef ghi1!", "no spaces"},
		{"common fragment", "MyPassword123!x", "too close to a common password"},
		{"common fragment azerty", "Sup3r-azerty-Long", "too close to a common password"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.pw)
			require.NotNil(t, err)
			assert.Contains(t, err.Errors, tc.want)
		})
	}
}
