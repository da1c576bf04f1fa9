package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newEvaluateCmd(boot bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate",
		Short: "Run one evaluation sweep over all active challenges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, boot, func(ctx context.Context, rt *runtime) error {
				report, err := rt.service.RunScheduledEvaluation(ctx)
				if err != nil {
					return err
				}
				renderReport(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}
}
