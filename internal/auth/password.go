package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Параметры PBKDF2. Итерации записываются в сам хеш, поэтому их можно менять
// без миграции: старые хеши проверяются со своим значением.
const (
	PasswordIterations = 100_000
	passwordSaltLen    = 16
	passwordKeyLen     = 64
)

// HashPassword возвращает строку вида "iterations:saltHex:digestHex".
func HashPassword(plain string) (string, error) {
	salt := make([]byte, passwordSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	digest := pbkdf2.Key([]byte(plain), salt, PasswordIterations, passwordKeyLen, sha512.New)
	return strconv.Itoa(PasswordIterations) + ":" + hex.EncodeToString(salt) + ":" + hex.EncodeToString(digest), nil
}

// VerifyPassword сверяет пароль с сохранённым хешем.
// Любой повреждённый хеш даёт false.
func VerifyPassword(plain, stored string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 3 {
		return false
	}
	iterations, err := strconv.Atoi(parts[0])
	if err != nil || iterations <= 0 {
		return false
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil || len(salt) == 0 {
		return false
	}
	want, err := hex.DecodeString(parts[2])
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(plain), salt, iterations, len(want), sha512.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
