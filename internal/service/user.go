package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ChipTrack/internal/auth"
	"ChipTrack/internal/model"
	"ChipTrack/internal/repo"

	"go.uber.org/zap"
)

// MinPasswordLength - минимальная длина нового пароля.
const MinPasswordLength = 6

// UserService - вход, список пользователей и смена паролей.
type UserService struct {
	users  repo.UserRepository
	tokens *auth.TokenManager
	logger *zap.SugaredLogger

	// хеш-заглушка, чтобы время ответа не выдавало существование логина
	dummyHash string
}

// NewUserService создаёт сервис пользователей.
func NewUserService(users repo.UserRepository, tokens *auth.TokenManager, logger *zap.SugaredLogger) *UserService {
	dummy, _ := auth.HashPassword("chiptrack-dummy-password")
	return &UserService{users: users, tokens: tokens, logger: logger, dummyHash: dummy}
}

// Session - результат успешного входа.
type Session struct {
	Principal auth.Principal
	Token     string
	ExpiresAt time.Time
}

// Login проверяет пароль и выпускает токен сессии со свежим CSRF-токеном.
func (s *UserService) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalid("Username and password are required")
	}

	u, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		auth.VerifyPassword(password, s.dummyHash)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !auth.VerifyPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	csrf, err := auth.NewCSRFToken()
	if err != nil {
		return nil, err
	}
	p := auth.Principal{
		Username:    u.Username,
		Role:        u.Role,
		DisplayName: u.DisplayName,
		CSRFToken:   csrf,
	}
	token, exp, err := s.tokens.Issue(p)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Principal: p, Token: token, ExpiresAt: exp}, nil
}

// ListUsers возвращает всех пользователей, отсортированных по отображаемому имени.
func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// ChangePasswordInput - тело запроса смены пароля.
type ChangePasswordInput struct {
	NewPassword      string `json:"newPassword"`
	OverrideUsername string `json:"overrideUsername,omitempty"`
	OverridePassword string `json:"overridePassword,omitempty"`
}

// ChangePassword меняет пароль пользователя username.
// Администратор может менять любой пароль; остальным нужны учётные данные администратора в теле запроса.
func (s *UserService) ChangePassword(ctx context.Context, actor auth.Principal, username string, in ChangePasswordInput) error {
	if len(in.NewPassword) < MinPasswordLength {
		return invalid(fmt.Sprintf("New password must be at least %d characters", MinPasswordLength))
	}

	if !actor.IsAdmin() {
		if err := s.checkAdminOverride(ctx, in.OverrideUsername, in.OverridePassword); err != nil {
			return err
		}
	}

	if err := s.SetPassword(ctx, username, in.NewPassword); err != nil {
		return err
	}
	s.logger.Infow("UserService: password changed", "username", username, "by", actor.Username)
	return nil
}

func (s *UserService) checkAdminOverride(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrForbidden
	}
	admin, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		auth.VerifyPassword(password, s.dummyHash)
		return ErrForbidden
	}
	if err != nil {
		return fmt.Errorf("get override user: %w", err)
	}
	if !auth.VerifyPassword(password, admin.PasswordHash) || admin.Role != model.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// SetPassword записывает новый пароль без проверки прав (используется CLI).
func (s *UserService) SetPassword(ctx context.Context, username, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return invalid(fmt.Sprintf("New password must be at least %d characters", MinPasswordLength))
	}
	if _, err := s.users.GetUserByUsername(ctx, username); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, username, hash)
}
