// Package storage выбирает бэкенд хранения по DSN.
package storage

import (
	"context"
	"fmt"
	"strings"

	"ChipTrack/internal/repo"
	"ChipTrack/internal/repo/mongorepo"
)

// Backend - тип хранилища.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
	BackendMongo    Backend = "mongodb"
)

// Storage объединяет репозитории одного бэкенда.
type Storage struct {
	Backend Backend
	Users   repo.UserRepository
	Items   repo.ItemRepository

	close func() error
}

// Close освобождает соединения с базой.
func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// DetectBackend определяет бэкенд по схеме DSN.
// Всё, что не mongodb:// и не sqlite://, считается Postgres.
func DetectBackend(dsn string) Backend {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "mongodb://"), strings.HasPrefix(lower, "mongodb+srv://"):
		return BackendMongo
	case strings.HasPrefix(lower, "sqlite://"):
		return BackendSQLite
	default:
		return BackendPostgres
	}
}

// Open подключается к хранилищу и применяет миграции или индексы.
func Open(ctx context.Context, dsn string) (*Storage, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database uri is empty")
	}

	switch backend := DetectBackend(dsn); backend {
	case BackendMongo:
		client, db, err := mongorepo.Connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return &Storage{
			Backend: backend,
			Users:   mongorepo.NewUserRepository(db),
			Items:   mongorepo.NewItemRepository(db),
			close:   func() error { return client.Disconnect(context.Background()) },
		}, nil

	case BackendSQLite:
		db, err := repo.InitSQLite(strings.TrimPrefix(strings.TrimSpace(dsn), "sqlite://"))
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		return &Storage{
			Backend: backend,
			Users:   repo.NewUserRepository(db),
			Items:   repo.NewItemRepository(db),
			close:   sqlDB.Close,
		}, nil

	default:
		db, err := repo.InitDB(dsn)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		return &Storage{
			Backend: backend,
			Users:   repo.NewUserRepository(db),
			Items:   repo.NewItemRepository(db),
			close:   sqlDB.Close,
		}, nil
	}
}
