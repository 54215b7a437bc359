package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"deposit-collector/internal/service/collection"
	"deposit-collector/internal/worker"
)

func enqueueCommand(use, short string, action collection.Action) *cobra.Command {
	c := &cobra.Command{
		Use:   use + " <address-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("address id: %w", err)
			}
			addr, _ := cmd.Flags().GetString("redis-addr")
			password, _ := cmd.Flags().GetString("redis-password")
			db, _ := cmd.Flags().GetInt("redis-db")

			// no dedup window, an operator asked for it explicitly
			client := worker.NewClient(addr, password, db, 0)
			defer client.Close()

			if err := client.EnqueueCollection(cmd.Context(), id, action); err != nil {
				return err
			}
			fmt.Printf("enqueued %s job for deposit address %d\n", action, id)
			return nil
		},
	}
	c.Flags().String("redis-addr", "localhost:6379", "task queue Redis address")
	c.Flags().String("redis-password", "", "task queue Redis password")
	c.Flags().Int("redis-db", 0, "task queue Redis database")
	return c
}

func init() {
	rootCmd.AddCommand(
		enqueueCommand("collect", "Sweep a deposit address to the hot wallet", collection.ActionCollect),
		enqueueCommand("refuel", "Send gas from the fee wallet to a deposit address", collection.ActionRefuel),
	)
}
