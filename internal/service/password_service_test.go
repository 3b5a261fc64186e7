package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgon2PasswordHasher_HashAndVerify(t *testing.T) {
	h := NewArgon2PasswordHasher()

	encoded, err := h.Hash("CorrectHorse9!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	ok, err := h.Verify("CorrectHorse9!", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("WrongPassword", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2PasswordHasher_UniqueSalt(t *testing.T) {
	h := NewArgon2PasswordHasher()

	h1, err := h.Hash("same-password")
	require.NoError(t, err)
	h2, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "each hash should carry a fresh salt")
}

func TestArgon2PasswordHasher_VerifyMalformed(t *testing.T) {
	h := NewArgon2PasswordHasher()

	_, err := h.Verify("pw", "not-an-argon2-hash")
	assert.Error(t, err)

	_, err = h.Verify("pw", "$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA")
	assert.Error(t, err)
}
