package cmd

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"deposit-collector/internal/chain/ethereum"
)

var gasPriceCmd = &cobra.Command{
	Use:   "gas-price",
	Short: "Print the node's current gas price in wei",
	RunE: func(cmd *cobra.Command, args []string) error {
		rpcURL, _ := cmd.Flags().GetString("rpc")

		ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
		defer cancel()
		client, err := ethereum.Dial(ctx, rpcURL, ethereum.DefaultOptions())
		if err != nil {
			return err
		}
		defer client.Close()

		price, err := client.GasPrice(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", ethereum.KindName(err), err)
		}
		fmt.Printf("gas price: %s wei (%s gwei)\n", price.String(), price.Shift(-9).String())
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Print the native or token balance of an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rpcURL, _ := cmd.Flags().GetString("rpc")
		contract, _ := cmd.Flags().GetString("contract")
		decimals, _ := cmd.Flags().GetInt32("decimals")

		ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
		defer cancel()
		client, err := ethereum.Dial(ctx, rpcURL, ethereum.DefaultOptions())
		if err != nil {
			return err
		}
		defer client.Close()

		balance, err := client.Balance(ctx, args[0], contract)
		if err != nil {
			return fmt.Errorf("%s: %w", ethereum.KindName(err), err)
		}
		fmt.Printf("balance: %s base units (%s)\n", balance.String(), toUnits(balance, decimals))
		return nil
	},
}

func toUnits(v decimal.Decimal, decimals int32) string {
	return v.Shift(-decimals).String()
}

func init() {
	for _, c := range []*cobra.Command{gasPriceCmd, balanceCmd} {
		c.Flags().String("rpc", "http://localhost:8545", "node JSON-RPC endpoint")
		rootCmd.AddCommand(c)
	}
	balanceCmd.Flags().String("contract", "", "ERC-20 contract, empty for the native coin")
	balanceCmd.Flags().Int32("decimals", 18, "currency decimals used for display")
}
