package service

import (
	"context"
	"fmt"
	"strings"

	"ChipTrack/internal/auth"
	"ChipTrack/internal/model"
)

// DefaultSeedUsers - пользователи, создаваемые в пустой базе.
const DefaultSeedUsers = "Shyam:shyam123:admin,Rakesh:rakesh123:user"

// SeedUser - описание пользователя для первичного заполнения.
type SeedUser struct {
	Username    string
	Password    string
	Role        model.Role
	DisplayName string
}

// ParseSeedUsers разбирает строку вида "Name:password:role[:Display Name],...".
func ParseSeedUsers(s string) ([]SeedUser, error) {
	var out []SeedUser
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 4)
		if len(parts) < 3 {
			return nil, fmt.Errorf("seed entry %q: want name:password:role[:display]", entry)
		}
		su := SeedUser{
			Username: strings.TrimSpace(parts[0]),
			Password: parts[1],
			Role:     model.Role(strings.ToLower(strings.TrimSpace(parts[2]))),
		}
		if su.Username == "" || su.Password == "" {
			return nil, fmt.Errorf("seed entry %q: empty name or password", entry)
		}
		if !su.Role.Valid() {
			return nil, fmt.Errorf("seed entry %q: unknown role %q", entry, su.Role)
		}
		su.DisplayName = su.Username
		if len(parts) == 4 && strings.TrimSpace(parts[3]) != "" {
			su.DisplayName = strings.TrimSpace(parts[3])
		}
		out = append(out, su)
	}
	return out, nil
}

// SeedUsers создаёт пользователей, только если хранилище пустое. Возвращает число созданных.
func (s *UserService) SeedUsers(ctx context.Context, seeds []SeedUser) (int, error) {
	n, err := s.users.CountUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	created := 0
	for _, su := range seeds {
		hash, err := auth.HashPassword(su.Password)
		if err != nil {
			return created, err
		}
		_, err = s.users.CreateUser(ctx, &model.User{
			Username:     su.Username,
			PasswordHash: hash,
			DisplayName:  su.DisplayName,
			Role:         su.Role,
		})
		if err != nil {
			return created, fmt.Errorf("create user %s: %w", su.Username, err)
		}
		created++
	}
	if created > 0 {
		s.logger.Infow("UserService: seeded users", "count", created)
	}
	return created, nil
}
