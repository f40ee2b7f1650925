package engine

import "errors"

var (
	// ErrStopped is returned by Submit once the engine has stopped.
	ErrStopped = errors.New("engine stopped")

	// ErrReplayTargetNotEmpty is returned when Replay is pointed at a store
	// that already has ledger entries.
	ErrReplayTargetNotEmpty = errors.New("replay target store is not empty")
)
