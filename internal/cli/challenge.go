package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"propDesk/internal/adapters/report"
	"propDesk/internal/analytics"
	"propDesk/internal/ports"
	"propDesk/internal/utils"
)

func newChallengeCmd(boot bootstrapFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "challenge",
		Short: "Open and inspect challenge accounts",
		Long: `Open and inspect challenge accounts.

Examples:
  propdesk challenge tiers
  propdesk challenge open --owner alice --tier pro
  propdesk challenge status 12
  propdesk challenge history 12 --xlsx reports/12.xlsx`,
	}
	cmd.AddCommand(
		newChallengeTiersCmd(boot),
		newChallengeOpenCmd(boot),
		newChallengeStatusCmd(boot),
		newChallengeHistoryCmd(boot),
	)
	return cmd
}

func newChallengeTiersCmd(boot bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "tiers",
		Short: "List the challenge tiers with fee and start balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, boot, func(ctx context.Context, rt *runtime) error {
				renderTiers(cmd.OutOrStdout(), rt.tiers)
				return nil
			})
		},
	}
}

func newChallengeOpenCmd(boot bootstrapFunc) *cobra.Command {
	var owner, tier string
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open an active challenge at a tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, boot, func(ctx context.Context, rt *runtime) error {
				t, ok := rt.tiers.Lookup(tier)
				if !ok {
					return fmt.Errorf("unknown tier %q, available: %s: %w",
						tier, strings.Join(rt.tiers.Names(), ", "), ports.ErrValidation)
				}
				ch, err := rt.service.OpenChallenge(ctx, owner, t.Name)
				if err != nil {
					return err
				}
				renderChallenge(cmd.OutOrStdout(), ch)
				fmt.Fprintf(cmd.OutOrStdout(), "Challenge fee: %s\n", money(t.Price))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner reference (required)")
	cmd.Flags().StringVar(&tier, "tier", "starter", "challenge tier, see 'challenge tiers'")
	cmd.MarkFlagRequired("owner")
	return cmd
}

func newChallengeStatusCmd(boot bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status <challenge-id>",
		Short: "Evaluate a challenge and show its state and open trades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("challenge", args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, boot, func(ctx context.Context, rt *runtime) error {
				ch, err := rt.service.GetChallengeStatus(ctx, id)
				if err != nil {
					return err
				}
				open, err := rt.service.ListOpenTrades(ctx, id)
				if err != nil {
					return err
				}
				renderChallenge(cmd.OutOrStdout(), ch)
				renderOpenTrades(cmd.OutOrStdout(), open)
				return nil
			})
		},
	}
}

func newChallengeHistoryCmd(boot bootstrapFunc) *cobra.Command {
	var xlsxPath, csvPath string
	cmd := &cobra.Command{
		Use:   "history <challenge-id>",
		Short: "Show every trade of a challenge, optionally exporting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("challenge", args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, boot, func(ctx context.Context, rt *runtime) error {
				trades, err := rt.service.TradeHistory(ctx, id)
				if err != nil {
					return err
				}
				renderTrades(cmd.OutOrStdout(), trades)
				ch, err := rt.service.GetChallengeStatus(ctx, id)
				if err != nil {
					return err
				}
				renderPerformance(cmd.OutOrStdout(), analytics.Analyze(trades, ch.StartBalance))

				if csvPath != "" {
					if err := utils.WriteTradesToCSV(trades, csvPath); err != nil {
						return fmt.Errorf("csv export: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d trades to %s\n", len(trades), csvPath)
				}
				if xlsxPath != "" {
					if err := report.WriteTradeHistoryXLSX(ch, trades, xlsxPath); err != nil {
						return fmt.Errorf("xlsx export: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d trades to %s\n", len(trades), xlsxPath)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "export the history to an Excel workbook")
	cmd.Flags().StringVar(&csvPath, "csv", "", "export the history to a CSV file")
	return cmd
}
