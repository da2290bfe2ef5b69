package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
)

// stagedOp is one save or delete queued by a "save"/"delete" invocation,
// waiting for "commit" to replay it through a real session.
type stagedOp struct {
	Provider string          `json:"provider"`
	Key      string          `json:"key"`
	Kind     string          `json:"kind"` // "save" or "delete"
	Version  int64           `json:"version,omitempty"`
	ETag     string          `json:"etag,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// sessionState is the on-disk record of a pending CLI-driven session. It
// exists only because ledgerctl's subcommands are separate process
// invocations; an in-process caller would hold a *txn.Session directly.
type sessionState struct {
	SessionID string     `json:"sessionId"`
	Ops       []stagedOp `json:"ops"`
}

func newSessionState() *sessionState {
	return &sessionState{SessionID: uuid.New().String()}
}

func loadSessionState(path string) (*sessionState, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s sessionState
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *sessionState) save(path string) error {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func discardSessionState(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
