package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var rpcTimeout time.Duration

// rootCmd is the operator tool for deposit collection.
var rootCmd = &cobra.Command{
	Use:   "collector-cli",
	Short: "Deposit collector operator tool",
	Long: `Inspect blockchain nodes, classify node errors and enqueue
collection jobs for single deposit addresses.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&rpcTimeout, "timeout", 10*time.Second, "timeout of a node request")
}
