package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newLeaderboardCmd(boot bootstrapFunc) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank active and funded challenges by profit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, boot, func(ctx context.Context, rt *runtime) error {
				entries, err := rt.service.Leaderboard(ctx, limit)
				if err != nil {
					return err
				}
				renderLeaderboard(cmd.OutOrStdout(), entries)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of entries (default LEADERBOARD_LIMIT)")
	return cmd
}
