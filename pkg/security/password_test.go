package security_test

import (
	"strings"
	"testing"

	"github.com/angelmondragon/puntoventa-backend/pkg/config"
	"github.com/angelmondragon/puntoventa-backend/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("caja2024segura", fastPasswordConfig())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"))

	ok, err := security.VerifyPassword("caja2024segura", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = security.VerifyPassword("otra-clave-1", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordSaltsEachHash(t *testing.T) {
	a, err := security.HashPassword("same-pass-1", fastPasswordConfig())
	require.NoError(t, err)
	b, err := security.HashPassword("same-pass-1", fastPasswordConfig())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	_, err = security.HashPassword("", fastPasswordConfig())
	assert.Error(t, err)
}

func TestVerifyPasswordBadHash(t *testing.T) {
	_, err := security.VerifyPassword("irrelevant", "not-a-hash")
	assert.ErrorIs(t, err, security.ErrInvalidHash)

	_, err = security.VerifyPassword("irrelevant", "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA")
	assert.ErrorIs(t, err, security.ErrInvalidHash)
}

func TestCheckPasswordPolicy(t *testing.T) {
	assert.NoError(t, security.CheckPasswordPolicy("abcdefg1"))
	assert.NoError(t, security.CheckPasswordPolicy("contraseña9"))
	assert.ErrorIs(t, security.CheckPasswordPolicy("abc1"), security.ErrWeakPassword)
	assert.ErrorIs(t, security.CheckPasswordPolicy("abcdefgh"), security.ErrWeakPassword)
	assert.ErrorIs(t, security.CheckPasswordPolicy("12345678"), security.ErrWeakPassword)
}
