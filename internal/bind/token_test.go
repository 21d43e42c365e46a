package bind

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSecret_ExactLength(t *testing.T) {
	for _, length := range []int{16, 17, 24, 32, 64} {
		secret, err := NewSecret(length)
		require.NoError(t, err)
		assert.Len(t, secret, length)
	}
}

func TestNewSecret_URLSafeAlphabet(t *testing.T) {
	urlSafe := regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	secret, err := NewSecret(32)
	require.NoError(t, err)
	assert.True(t, urlSafe.MatchString(secret), "secret %q contains non URL-safe characters", secret)
}

func TestNewSecret_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 200)

	for i := 0; i < 200; i++ {
		secret, err := NewSecret(32)
		require.NoError(t, err)

		_, dup := seen[secret]
		require.False(t, dup, "generated duplicate secret %q", secret)
		seen[secret] = struct{}{}
	}
}

func TestNewSecret_RejectsNonPositiveLength(t *testing.T) {
	_, err := NewSecret(0)
	assert.Error(t, err)

	_, err = NewSecret(-5)
	assert.Error(t, err)
}
