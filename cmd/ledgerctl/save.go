package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Stage a save against the pending session",
	RunE: func(cmd *cobra.Command, args []string) error {
		statePath, _ := cmd.Flags().GetString("state")
		provider, _ := cmd.Flags().GetString("provider")
		key, _ := cmd.Flags().GetString("key")
		payload, _ := cmd.Flags().GetString("payload")
		version, _ := cmd.Flags().GetInt64("version")
		etag, _ := cmd.Flags().GetString("etag")

		if provider == "" || key == "" {
			return fmt.Errorf("--provider and --key are required")
		}
		if !json.Valid([]byte(payload)) {
			return fmt.Errorf("--payload must be valid JSON")
		}
		if version == 0 {
			version = 1
		}

		state, err := loadSessionState(statePath)
		if err != nil {
			return fmt.Errorf("no pending session in %s; run \"ledgerctl begin\" first", statePath)
		}

		state.Ops = append(state.Ops, stagedOp{
			Provider: provider,
			Key:      key,
			Kind:     "save",
			Version:  version,
			ETag:     etag,
			Payload:  json.RawMessage(payload),
		})

		if err := state.save(statePath); err != nil {
			return fmt.Errorf("write session state: %w", err)
		}

		fmt.Printf("staged save %s/%s\n", provider, key)
		return nil
	},
}

func init() {
	saveCmd.Flags().String("provider", "", "Provider name to save against (required)")
	saveCmd.Flags().String("key", "", "Entity key (required)")
	saveCmd.Flags().String("payload", "{}", "Entity payload as a JSON document")
	saveCmd.Flags().Int64("version", 0, "Entity version (defaults to 1)")
	saveCmd.Flags().String("etag", "", "Opaque ETag to round-trip with the entity")
}
