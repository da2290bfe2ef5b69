package main

import "github.com/cuemby/ledger/pkg/txnerr"

// exitCodeForErr maps a ledger error Kind to a process exit code
// (spec.md §7: HTTP controllers map PrepareFailed/PartiallyCommitted/
// Unavailable to 5xx, InvalidKey/InvalidEntity to 4xx, Cancelled to a
// client-initiated close — ledgerctl plays the same role for a CLI).
func exitCodeForErr(err error) int {
	kind, ok := txnerr.KindOf(err)
	if !ok {
		return 1
	}
	switch kind {
	case txnerr.PrepareFailed, txnerr.PartiallyCommitted, txnerr.Unavailable:
		return 1
	case txnerr.InvalidKey, txnerr.InvalidEntity, txnerr.ValueTooLarge, txnerr.Serialization, txnerr.UnknownSavepoint, txnerr.InvalidState:
		return 2
	case txnerr.Cancelled:
		return 130
	default:
		return 1
	}
}
