package cli

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"propDesk/internal/app"
	"propDesk/internal/ports"
)

func newTradeCmd(boot bootstrapFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Place, close and list simulated trades",
		Long: `Place, close and list simulated trades.

Trades fill at the current market price. Closing a trade realises its
profit into the challenge equity.

Examples:
  propdesk trade place --challenge 12 --symbol BTCUSDT --side buy --qty 0.01
  propdesk trade place --challenge 12 --symbol ETHUSDT --side sell --position short --qty 1
  propdesk trade close 40
  propdesk trade open 12`,
	}
	cmd.AddCommand(
		newTradePlaceCmd(boot),
		newTradeCloseCmd(boot),
		newTradeOpenCmd(boot),
	)
	return cmd
}

func newTradePlaceCmd(boot bootstrapFunc) *cobra.Command {
	var (
		challengeID int64
		symbol      string
		side        string
		position    string
		qty         string
	)
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Open a trade at the current market price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := decimal.NewFromString(qty)
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", qty, ports.ErrValidation)
			}
			return withRuntime(cmd, boot, func(ctx context.Context, rt *runtime) error {
				fill, err := rt.service.PlaceTrade(ctx, app.PlaceTradeRequest{
					ChallengeID: challengeID,
					Symbol:      symbol,
					Side:        side,
					Position:    position,
					Quantity:    quantity,
				})
				if err != nil {
					return err
				}
				renderFill(cmd.OutOrStdout(), fill)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&challengeID, "challenge", 0, "challenge id (required)")
	cmd.Flags().StringVar(&symbol, "symbol", "", "market symbol, e.g. BTCUSDT (required)")
	cmd.Flags().StringVar(&side, "side", "buy", "order side: buy or sell")
	cmd.Flags().StringVar(&position, "position", "long", "position: long or short")
	cmd.Flags().StringVar(&qty, "qty", "", "quantity (required)")
	cmd.MarkFlagRequired("challenge")
	cmd.MarkFlagRequired("symbol")
	cmd.MarkFlagRequired("qty")
	return cmd
}

func newTradeCloseCmd(boot bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "close <trade-id>",
		Short: "Close an open trade at the current market price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("trade", args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, boot, func(ctx context.Context, rt *runtime) error {
				closed, err := rt.service.CloseTrade(ctx, id)
				if err != nil {
					return err
				}
				renderClose(cmd.OutOrStdout(), closed)
				return nil
			})
		},
	}
}

func newTradeOpenCmd(boot bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "open <challenge-id>",
		Short: "List open trades with unrealized PnL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("challenge", args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, boot, func(ctx context.Context, rt *runtime) error {
				open, err := rt.service.ListOpenTrades(ctx, id)
				if err != nil {
					return err
				}
				renderOpenTrades(cmd.OutOrStdout(), open)
				return nil
			})
		},
	}
}
