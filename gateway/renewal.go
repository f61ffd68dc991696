package gateway

import (
	"context"
	"sync"

	"github.com/pocketledger/pocketledger-go/authapi"
)

// renewalCoordinator is a guarded slot holding at most one in-flight token
// renewal. Every caller that observes a 401 while a renewal is in flight
// attaches to the same outcome instead of starting its own; this is the
// invariant that prevents a refresh-token race under concurrent 401s.
type renewalCoordinator struct {
	mu     sync.Mutex
	flight *renewalFlight
}

type renewalFlight struct {
	done chan struct{}
	pair authapi.TokenPair
	err  error
}

// await joins the current renewal, starting one if none is in flight.
// The renewal itself runs detached from any single caller's context, so a
// cancelled waiter returns early with ctx.Err() while the shared renewal
// completes for the benefit of the other waiters.
func (rc *renewalCoordinator) await(
	ctx context.Context,
	renew func(ctx context.Context) (authapi.TokenPair, error),
) (authapi.TokenPair, error) {
	rc.mu.Lock()
	flight := rc.flight
	if flight == nil {
		flight = &renewalFlight{done: make(chan struct{})}
		rc.flight = flight

		go func() {
			pair, err := renew(context.WithoutCancel(ctx))

			rc.mu.Lock()
			flight.pair = pair
			flight.err = err
			rc.flight = nil
			rc.mu.Unlock()

			close(flight.done)
		}()
	}
	rc.mu.Unlock()

	select {
	case <-flight.done:
		return flight.pair, flight.err
	case <-ctx.Done():
		return authapi.TokenPair{}, ctx.Err()
	}
}
