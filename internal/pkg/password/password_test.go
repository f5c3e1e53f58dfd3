package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("password123")
	require.NoError(t, err)

	assert.NotEqual(t, "password123", hash)
	assert.True(t, Verify("password123", hash))
	assert.False(t, Verify("password124", hash))
}

func TestHashRejectsBadLength(t *testing.T) {
	_, err := Hash("short")
	assert.ErrorIs(t, err, ErrTooShort)

	_, err = Hash(strings.Repeat("x", MaxLength+1))
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestHashToken(t *testing.T) {
	a := HashToken("token")
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashToken("token"))
	assert.NotEqual(t, a, HashToken("token2"))
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     error
	}{
		{"too short", "short", ErrTooShort},
		{"exactly minimum", strings.Repeat("a", MinLength), nil},
		{"multibyte counts runes", "รหัสผ่านยาว", nil},
		{"bcrypt limit", strings.Repeat("a", MaxLength), nil},
		{"over bcrypt limit", strings.Repeat("a", MaxLength+1), ErrTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.password)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
