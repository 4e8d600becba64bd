package commands

import (
	"context"
	"errors"
	"fmt"

	"ChipTrack/internal/config"
	"ChipTrack/internal/repo"
)

// passwdCmd задаёт пароль напрямую, без проверки прав: доступ к CLI уже означает доступ к базе.
type passwdCmd struct{}

func (passwdCmd) Name() string        { return "passwd" }
func (passwdCmd) Description() string { return "Set a user's password" }
func (passwdCmd) Usage() string       { return "passwd <username> <newPassword>" }

func (passwdCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	username := args[0]
	return withServices(ctx, cfg, func(s *services) error {
		err := s.users.SetPassword(ctx, username, args[1])
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("user %q not found", username)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(Out, "Password updated for %s\n", username)
		return nil
	})
}

func init() { RegisterCmd(passwdCmd{}) }
