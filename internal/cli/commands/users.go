package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"ChipTrack/internal/config"
)

type usersCmd struct{}

func (usersCmd) Name() string        { return "users" }
func (usersCmd) Description() string { return "List users" }
func (usersCmd) Usage() string       { return "users" }

func (usersCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	return withServices(ctx, cfg, func(s *services) error {
		users, err := s.users.ListUsers(ctx)
		if err != nil {
			return err
		}
		if len(users) == 0 {
			fmt.Fprintln(Out, "No users. Run `seed` first.")
			return nil
		}
		tw := tabwriter.NewWriter(Out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "USERNAME\tDISPLAY NAME\tROLE")
		for _, u := range users {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Username, u.DisplayName, u.Role)
		}
		return tw.Flush()
	})
}

func init() { RegisterCmd(usersCmd{}) }
