package cli

import (
	"context"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newPriceCmd(boot bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "price <symbol>...",
		Short: "Quote symbols from the configured price source",
		Long: `Quote symbols from the configured price source (PRICE_SOURCE).

A symbol that cannot be priced is listed with its error; trades on it
would be rejected.

Example:
  propdesk price BTCUSDT ETHUSDT`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, boot, func(ctx context.Context, rt *runtime) error {
				ctx, cancel := context.WithTimeout(ctx, rt.cfg.PriceTimeout)
				defer cancel()

				t := newTable(cmd.OutOrStdout(), "PRICES")
				t.AppendHeader(table.Row{"Symbol", "Price"})
				for _, arg := range args {
					symbol := strings.ToUpper(strings.TrimSpace(arg))
					price, err := rt.oracle.GetPrice(ctx, symbol)
					if err != nil {
						rt.logger.Warn(ctx, "Price lookup failed", map[string]interface{}{"symbol": symbol, "error": err.Error()})
						t.AppendRow(table.Row{symbol, "unavailable"})
						continue
					}
					t.AppendRow(table.Row{symbol, price.String()})
				}
				t.SetColumnConfigs(numericColumns(2))
				t.Render()
				return nil
			})
		},
	}
}
