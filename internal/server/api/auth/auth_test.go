package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcbrc/rcrx/internal/server/api/auth"
)

const keyPattern = "^[2-9A-HJKMNP-Z]{4}(-[2-9A-HJKMNP-Z]{4}){3}$"

func TestGenerateKey(t *testing.T) {
	seen := map[string]bool{}
	for range 50 {
		key, err := auth.GenerateKey()
		require.NoError(t, err)
		assert.Regexp(t, keyPattern, key)
		assert.False(t, seen[key], "duplicate key %s", key)
		seen[key] = true
	}
}

func BenchmarkGenerateKey(b *testing.B) {
	for b.Loop() {
		if _, err := auth.GenerateKey(); err != nil {
			b.Fatal(err)
		}
	}
}

func TestDeriveKey(t *testing.T) {
	testCases := []struct {
		name     string
		password string
	}{
		{name: "generated key", password: "7KQM-D2XH-PW9R-TC4N"},
		{name: "plain password", password: "password123"},
		{name: "single char", password: "1"},
		{name: "long password", password: "dkfghdfg90d78h350ß8dgfjkdfg#---23489dfg!!!@!@#$$%&/()="},
	}

	seen := map[string]string{}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := auth.DeriveKey(tc.password)
			require.NoError(t, err)
			assert.Len(t, key, 32)

			for pwd, other := range seen {
				assert.NotEqual(t, other, string(key), "collides with %q", pwd)
			}
			seen[tc.password] = string(key)
		})
	}

	t.Run("empty password", func(t *testing.T) {
		_, err := auth.DeriveKey("")
		assert.ErrorIs(t, err, auth.ErrEmptyPassword)
		_, err = auth.DeriveKey(" \n")
		assert.ErrorIs(t, err, auth.ErrEmptyPassword)
	})
}

func TestDeriveKeyAcceptsTypedForms(t *testing.T) {
	want, err := auth.DeriveKey("7KQM-D2XH-PW9R-TC4N")
	require.NoError(t, err)

	for _, typed := range []string{
		"7kqm-d2xh-pw9r-tc4n",
		"7KQMD2XHPW9RTC4N",
		"7KQM D2XH PW9R TC4N",
		" 7KQM-D2XH-PW9R-TC4N\n",
	} {
		got, err := auth.DeriveKey(typed)
		require.NoError(t, err)
		assert.Equal(t, want, got, typed)
	}

	// Other passwords stay case sensitive.
	lower, err := auth.DeriveKey("secret")
	require.NoError(t, err)
	upper, err := auth.DeriveKey(strings.ToUpper("secret"))
	require.NoError(t, err)
	assert.NotEqual(t, lower, upper)
}

func TestDeriveSessionKey(t *testing.T) {
	key := make([]byte, 32)
	serverNonce := make([]byte, 32)
	clientNonce := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
		serverNonce[i] = byte(i + 10)
		clientNonce[i] = byte(i + 20)
	}

	first, err := auth.DeriveSessionKey(key, serverNonce, clientNonce)
	require.NoError(t, err)
	assert.Len(t, first, 32)
	assert.NotEqual(t, key, first)

	again, err := auth.DeriveSessionKey(key, serverNonce, clientNonce)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	swapped, err := auth.DeriveSessionKey(key, clientNonce, serverNonce)
	require.NoError(t, err)
	assert.NotEqual(t, first, swapped)

	clientNonce[0] = 99
	changed, err := auth.DeriveSessionKey(key, serverNonce, clientNonce)
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)
}
