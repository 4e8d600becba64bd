package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"ChipTrack/internal/config"
)

type backupCmd struct{}

func (backupCmd) Name() string { return "backup" }
func (backupCmd) Description() string {
	return "Dump all items, deleted ones included, as JSON to stdout or a file"
}
func (backupCmd) Usage() string { return "backup [file]" }

func (backupCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 1 {
		return ErrUsage
	}
	return withServices(ctx, cfg, func(s *services) error {
		items, err := s.items.Backup(ctx)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return fmt.Errorf("encode backup: %w", err)
		}

		if len(args) == 0 {
			_, err = fmt.Fprintln(Out, string(data))
			return err
		}
		if err := os.WriteFile(args[0], data, 0o600); err != nil {
			return fmt.Errorf("write backup: %w", err)
		}
		fmt.Fprintf(Out, "Saved %d items to %s\n", len(items), args[0])
		return nil
	})
}

func init() { RegisterCmd(backupCmd{}) }
