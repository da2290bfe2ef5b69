package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var beginCmd = &cobra.Command{
	Use:   "begin",
	Short: "Start a new pending session, recorded in the local state file",
	RunE: func(cmd *cobra.Command, args []string) error {
		statePath, _ := cmd.Flags().GetString("state")

		if _, err := loadSessionState(statePath); err == nil {
			return fmt.Errorf("a session is already pending in %s; commit or rollback it first", statePath)
		}

		state := newSessionState()
		if err := state.save(statePath); err != nil {
			return fmt.Errorf("write session state: %w", err)
		}

		fmt.Printf("session %s started\n", state.SessionID)
		return nil
	},
}
