package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/ledger/pkg/config"
	"github.com/cuemby/ledger/pkg/entity"
	"github.com/cuemby/ledger/pkg/providers"
	"github.com/cuemby/ledger/pkg/resource"
	"github.com/cuemby/ledger/pkg/txn"
)

// buildAdapters constructs one resource.Adapter per distinct provider
// referenced in state.Ops and stages every queued operation onto it.
func buildAdapters(ctx context.Context, configPath string, state *sessionState) (map[string]*resource.Adapter, error) {
	doc, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	registry := providers.NewRegistry(doc)

	adapters := make(map[string]*resource.Adapter)
	for _, op := range state.Ops {
		adapter, ok := adapters[op.Provider]
		if !ok {
			store, err := registry.Store(op.Provider)
			if err != nil {
				return nil, err
			}
			adapter = resource.New(op.Provider, store)
			adapters[op.Provider] = adapter
		}

		switch op.Kind {
		case "save":
			e := &entity.Entity{
				Key:     op.Key,
				Version: op.Version,
				ETag:    op.ETag,
				Payload: []byte(op.Payload),
			}
			if err := adapter.StageSave(op.Key, e); err != nil {
				return nil, err
			}
		case "delete":
			if err := adapter.StageDelete(op.Key); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown staged op kind %q", op.Kind)
		}
	}
	return adapters, nil
}

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Replay the pending session's staged ops through two-phase commit",
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
			return err
		}

		coordinator := txn.NewCoordinator()
		session := coordinator.Begin()
		for _, adapter := range adapters {
			if err := session.Enlist(adapter); err != nil {
				return err
			}
		}

		outcome, err := session.Commit(ctx)
		_ = discardSessionState(statePath)

		fmt.Printf("session %s: %s\n", session.ID(), outcome)
		if err != nil {
			return err
		}
		return nil
	},
}
