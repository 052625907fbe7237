package ring

import "github.com/pkg/errors"

// ErrUnreachable is the cause wrapped into every transport-level
// failure (a failed dial, a failed handshake read, a failed RPC round
// trip) so callers can distinguish "peer unreachable" from an
// application error the peer returned on purpose, via errors.Is.
var ErrUnreachable = errors.New("peer unreachable")

// ErrNoRoute is returned by FindSuccessor in the defensive case where a
// node cannot make forward progress (closestPrecedingFinger returned
// self and self is not responsible for the key either).
var ErrNoRoute = errors.New("no route to key")
