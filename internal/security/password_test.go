package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(hash), "$argon2id$v=19$t="))

	ok, err := VerifyPassword("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok, "freshly hashed password must verify")
}

func TestVerifyPassword_WrongPassword(t *testing.T) {
	hash, err := HashPassword("right")
	require.NoError(t, err)

	ok, err := VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	for _, encoded := range []string{
		"",
		"not-a-hash",
		"$argon2i$v=19$t=3,m=65536,p=2$c2FsdA==$aGFzaA==",
		"$argon2id$v=19$t=x,m=y,p=z$c2FsdA==$aGFzaA==",
		"$argon2id$v=19$t=3,m=65536,p=2$!!!$aGFzaA==",
	} {
		_, err := VerifyPassword("x", []byte(encoded))
		assert.Error(t, err, "encoded=%q", encoded)
	}
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	first, err := HashPassword("same")
	require.NoError(t, err)
	second, err := HashPassword("same")
	require.NoError(t, err)

	assert.NotEqual(t, string(first), string(second))

	for _, hash := range [][]byte{first, second} {
		ok, err := VerifyPassword("same", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
