package ring

import (
	"context"
	"time"
)

// IsAlive is the bounded-time reachability check used wherever a stale
// handle could otherwise poison the ring: before trusting finger[0],
// before trusting predecessor, and while scanning the finger table.
//
// It invokes peer.Key with a hard deadline; any error, timeout, or
// cancellation is interpreted as dead. The remote call runs on its own
// goroutine so the deadline can be enforced even if the underlying
// connection attempt itself never returns — that goroutine, and the
// dial it may be blocked in, can outlive this call and is abandoned on
// timeout. That leak is bounded by the transport's own I/O timeouts,
// not reclaimed here.
func IsAlive(ctx context.Context, peer Peer, timeout time.Duration) bool {
	if peer == nil {
		return false
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := peer.Key(cctx)
		done <- err
	}()

	select {
	case err := <-done:
		return err == nil
	case <-cctx.Done():
		return false
	}
}
