package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"propDesk/internal/ports"
)

// bootstrapFunc builds the runtime a command works against.
type bootstrapFunc func(ctx context.Context) (*runtime, error)

// Execute runs the propdesk command line and returns the process exit code.
func Execute() int {
	root := NewRootCmd(bootstrap)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describeError(err))
		return exitCode(err)
	}
	return 0
}

// NewRootCmd assembles the command tree.
func NewRootCmd(boot bootstrapFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "propdesk",
		Short: "Simulated prop-trading challenge engine",
		Long: `propdesk runs simulated funded-trader challenges.

Traders open a challenge at a tier, place simulated trades filled at live
market prices, and are evaluated against the challenge rules: a maximum
total loss, a maximum daily loss and a profit target. Breaching a loss
rule fails the challenge; reaching the target funds it.

Configuration is read from the environment (or a .env file).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(boot),
		newChallengeCmd(boot),
		newTradeCmd(boot),
		newEvaluateCmd(boot),
		newLeaderboardCmd(boot),
		newPriceCmd(boot),
	)
	return root
}

// withRuntime boots a runtime, runs fn and closes the runtime afterwards.
func withRuntime(cmd *cobra.Command, boot bootstrapFunc, fn func(ctx context.Context, rt *runtime) error) error {
	ctx := cmd.Context()
	rt, err := boot(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q: %w", kind, arg, ports.ErrValidation)
	}
	return id, nil
}
