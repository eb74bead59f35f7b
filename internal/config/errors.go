package config

import "errors"

// Sentinel errors for internal use.
var (
	// Session
	ErrNoActiveSession     = errors.New("no active wallet session")
	ErrProviderUnavailable = errors.New("signing provider unavailable")

	// Network reconciliation
	ErrUnsupportedNetwork = errors.New("network not supported by provider")

	// Content store
	ErrStoreUnavailable = errors.New("content store unavailable")
	ErrInvalidCID       = errors.New("invalid content identifier")

	// Ledger
	ErrReportNotFound  = errors.New("report not found")
	ErrTxReverted      = errors.New("transaction reverted")
	ErrReceiptTimeout  = errors.New("receipt polling timeout")
	ErrContractMissing = errors.New("contract not deployed on target network")

	// Pipeline
	ErrSubmitInFlight = errors.New("submission already in flight for this session")
)
