package service

import (
	"errors"

	"ChipTrack/internal/repo"
)

var (
	// ErrInvalidCredentials - неверная пара логин/пароль.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrForbidden - у вызывающего нет прав на операцию.
	ErrForbidden = errors.New("forbidden")
	// ErrJobNumberExists - номер заказа уже занят (в том числе удалённым заказом).
	ErrJobNumberExists = errors.New("job number already exists")
	// ErrNotFound - запись не найдена.
	ErrNotFound = repo.ErrNotFound
)

// ValidationError - ошибка входных данных, текст показывается клиенту.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
