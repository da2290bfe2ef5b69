package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Stage a delete against the pending session",
	RunE: func(cmd *cobra.Command, args []string) error {
		statePath, _ := cmd.Flags().GetString("state")
		provider, _ := cmd.Flags().GetString("provider")
		key, _ := cmd.Flags().GetString("key")

		if provider == "" || key == "" {
			return fmt.Errorf("--provider and --key are required")
		}

		state, err := loadSessionState(statePath)
		if err != nil {
			return fmt.Errorf("no pending session in %s; run \"ledgerctl begin\" first", statePath)
		}

		state.Ops = append(state.Ops, stagedOp{
			Provider: provider,
			Key:      key,
			Kind:     "delete",
		})

		if err := state.save(statePath); err != nil {
			return fmt.Errorf("write session state: %w", err)
		}

		fmt.Printf("staged delete %s/%s\n", provider, key)
		return nil
	},
}

func init() {
	deleteCmd.Flags().String("provider", "", "Provider name to delete from (required)")
	deleteCmd.Flags().String("key", "", "Entity key (required)")
}
