package repo

import "errors"

var (
	// ErrNotFound - запись не найдена (или помечена удалённой).
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateJobNumber - нарушение уникальности номера заказа.
	ErrDuplicateJobNumber = errors.New("job number already exists")
	// ErrDuplicateUsername - нарушение уникальности логина.
	ErrDuplicateUsername = errors.New("username already exists")
)
