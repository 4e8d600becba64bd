package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	for _, pw := range []string{"rakesh123", "", "пароль-с-юникодом", strings.Repeat("x", 200)} {
		hash, err := HashPassword(pw)
		require.NoError(t, err)
		assert.True(t, VerifyPassword(pw, hash), "password %q must verify", pw)
		assert.False(t, VerifyPassword(pw+"!", hash), "wrong password must not verify")
	}
}

func TestHashPassword_SelfDescribing(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)

	parts := strings.Split(hash, ":")
	require.Len(t, parts, 3)
	assert.Equal(t, "100000", parts[0])
	assert.Len(t, parts[1], passwordSaltLen*2)
	assert.Len(t, parts[2], passwordKeyLen*2)

	// соль случайная - два хеша одного пароля различаются
	other, err := HashPassword("secret")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other)
}

// хеш с другим числом итераций продолжает проверяться
func TestVerifyPassword_ForwardCompatibleIterations(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	parts := strings.Split(hash, ":")

	// пересчитываем дайджест с 1000 итераций руками через тот же формат
	legacy := "1000:" + parts[1] + ":" + legacyDigest(t, "secret", parts[1], 1000)
	assert.True(t, VerifyPassword("secret", legacy))
	assert.False(t, VerifyPassword("other", legacy))
}

func TestVerifyPassword_Malformed(t *testing.T) {
	cases := []string{
		"",
		"abc",
		"100000:deadbeef",
		"x:deadbeef:deadbeef",
		"0:deadbeef:deadbeef",
		"-5:deadbeef:deadbeef",
		"1000:zz:deadbeef",
		"1000:deadbeef:zz",
		"1000::deadbeef",
		"1000:deadbeef:",
		"1:2:3:4",
	}
	for _, c := range cases {
		assert.NotPanics(t, func() {
			assert.False(t, VerifyPassword("secret", c), "malformed %q must not verify", c)
		})
	}
}
