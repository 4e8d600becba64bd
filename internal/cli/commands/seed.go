package commands

import (
	"context"
	"fmt"

	"ChipTrack/internal/config"
	"ChipTrack/internal/service"
)

type seedCmd struct{}

func (seedCmd) Name() string        { return "seed" }
func (seedCmd) Description() string { return "Create default users when the user store is empty" }
func (seedCmd) Usage() string       { return "seed" }

func (seedCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	raw := cfg.SeedUsers
	if raw == "" {
		raw = service.DefaultSeedUsers
	}
	seeds, err := service.ParseSeedUsers(raw)
	if err != nil {
		return err
	}
	return withServices(ctx, cfg, func(s *services) error {
		n, err := s.users.SeedUsers(ctx, seeds)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Fprintln(Out, "Users already exist, nothing to seed")
			return nil
		}
		fmt.Fprintf(Out, "Created %d users\n", n)
		return nil
	})
}

func init() { RegisterCmd(seedCmd{}) }
