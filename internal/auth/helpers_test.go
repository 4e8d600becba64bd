package auth

import (
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

func legacyDigest(t *testing.T, plain, saltHex string, iterations int) string {
	t.Helper()
	salt, err := hex.DecodeString(saltHex)
	require.NoError(t, err)
	return hex.EncodeToString(pbkdf2.Key([]byte(plain), salt, iterations, passwordKeyLen, sha512.New))
}
