package domain

import "errors"

var (
	// ErrNotAvailable marks state that has not been produced yet, e.g. a
	// snapshot read before the first publish.
	ErrNotAvailable = errors.New("not yet available")

	// ErrInvalidTrade marks a trade print that cannot be applied to
	// inventory (bad size, side or instrument).
	ErrInvalidTrade = errors.New("invalid trade")

	// ErrStaleWrite marks a snapshot write whose sequence number does not
	// advance past the stored one.
	ErrStaleWrite = errors.New("stale snapshot write")

	// ErrFeedFatal marks a feed that exhausted its reconnect budget.
	ErrFeedFatal = errors.New("trade feed failed permanently")

	// ErrStoreUnavailable marks a transport failure of the durable store
	// backend; the failover store degrades on it.
	ErrStoreUnavailable = errors.New("snapshot store unavailable")
)
