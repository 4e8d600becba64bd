package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"ChipTrack/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL - срок жизни сессионного токена.
const SessionTTL = 8 * time.Hour

// ErrInvalidToken возвращается при любой ошибке проверки токена.
// Причина наружу не раскрывается.
var ErrInvalidToken = errors.New("invalid session token")

// Principal - личность, восстановленная из подписанного токена.
type Principal struct {
	Username    string     `json:"username"`
	Role        model.Role `json:"role"`
	DisplayName string     `json:"displayName"`
	CSRFToken   string     `json:"csrfToken"`
}

// IsAdmin сообщает, является ли пользователь администратором.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == model.RoleAdmin
}

type sessionClaims struct {
	Username    string     `json:"username"`
	Role        model.Role `json:"role"`
	DisplayName string     `json:"displayName"`
	CSRFToken   string     `json:"csrfToken"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет сессионные JWT.
// Токены не отзываются: после logout токен валиден до истечения срока.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager создаёт менеджер с TTL по умолчанию.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: SessionTTL, now: time.Now}
}

// WithClock подменяет источник времени (для тестов).
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	cp := *m
	cp.now = now
	return &cp
}

// TTL возвращает срок жизни токена.
func (m *TokenManager) TTL() time.Duration { return m.ttl }

// Issue подписывает токен для principal.
func (m *TokenManager) Issue(p Principal) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	claims := sessionClaims{
		Username:    p.Username,
		Role:        p.Role,
		DisplayName: p.DisplayName,
		CSRFToken:   p.CSRFToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify проверяет подпись и срок действия токена.
func (m *TokenManager) Verify(token string) (*Principal, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Username == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return &Principal{
		Username:    claims.Username,
		Role:        claims.Role,
		DisplayName: claims.DisplayName,
		CSRFToken:   claims.CSRFToken,
	}, nil
}

// NewCSRFToken генерирует случайный CSRF-токен на одну сессию.
func NewCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read csrf bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
