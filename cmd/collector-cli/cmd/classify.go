package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"deposit-collector/internal/chain/ethereum"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <message>",
	Short: "Show how a node error message is classified",
	Example: `  collector-cli classify "insufficient funds for gas * price + value"
  collector-cli classify --data "Requires higher than upper limit of 90000" "Transaction execution error."`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		code, _ := cmd.Flags().GetInt("code")
		data, _ := cmd.Flags().GetString("data")

		e := ethereum.Classify(code, strings.Join(args, " "), data)
		fmt.Printf("kind:      %s\n", ethereum.KindName(e))
		fmt.Printf("retryable: %t\n", ethereum.Retryable(e))
		fmt.Printf("error:     %s\n", e.Error())
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().Int("code", -32000, "JSON-RPC error code")
	classifyCmd.Flags().String("data", "", "JSON-RPC error data")
}
