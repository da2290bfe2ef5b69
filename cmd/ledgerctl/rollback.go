package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/ledger/pkg/txn"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Discard the pending session's staged ops without committing",
	RunE: func(cmd *cobra.Command, args []string) error {
		statePath, _ := cmd.Flags().GetString("state")
		configPath, _ := cmd.Flags().GetString("config")
		ctx := context.Background()

		state, err := loadSessionState(statePath)
		if err != nil {
			return fmt.Errorf("no pending session in %s; run \"ledgerctl begin\" first", statePath)
		}

		adapters, err := buildAdapters(ctx, configPath, state)
		if err != nil {
			_ = discardSessionState(statePath)
			return err
		}

		coordinator := txn.NewCoordinator()
		session := coordinator.Begin()
		for _, adapter := range adapters {
			if err := session.Enlist(adapter); err != nil {
				return err
			}
		}

		outcome, err := session.Rollback(ctx)
		_ = discardSessionState(statePath)

		fmt.Printf("session %s: %s\n", session.ID(), outcome)
		return err
	},
}
