package commands

import (
	"context"

	"ChipTrack/internal/auth"
	"ChipTrack/internal/config"
	"ChipTrack/internal/service"
	"ChipTrack/internal/storage"

	"go.uber.org/zap"
)

// Logger - логгер команд; main подменяет его на настоящий.
var Logger = zap.NewNop().Sugar()

// services - сервисы поверх того же хранилища, что и у сервера.
type services struct {
	store *storage.Storage
	users *service.UserService
	items *service.ItemService
}

func openServices(ctx context.Context, cfg *config.Config) (*services, error) {
	store, err := storage.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	return &services{
		store: store,
		users: service.NewUserService(store.Users, auth.NewTokenManager(cfg.AuthSecret), Logger),
		items: service.NewItemService(store.Items, nil, Logger),
	}, nil
}

func (s *services) Close() {
	if err := s.store.Close(); err != nil {
		Logger.Warnw("CLI: failed to close storage", "error", err)
	}
}

// withServices открывает хранилище на время выполнения fn.
func withServices(ctx context.Context, cfg *config.Config, fn func(*services) error) error {
	svc, err := openServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}
