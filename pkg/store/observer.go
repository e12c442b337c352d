package store

import "time"

// Observer receives operation telemetry from a Store. Implementations must be
// safe for concurrent use.
type Observer interface {
	// OnOperation is called once per logical operation with its latency and result.
	OnOperation(op string, d time.Duration, err error)

	// OnQuads reports how many quads an operation inserted or removed.
	OnQuads(op string, n int)

	// OnConflict is called each time a write transaction is retried.
	OnConflict(op string)
}

type noopObserver struct{}

func (noopObserver) OnOperation(string, time.Duration, error) {}
func (noopObserver) OnQuads(string, int)                      {}
func (noopObserver) OnConflict(string)                        {}
