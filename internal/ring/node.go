package ring

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"chordnode/internal/scheduler"
)

// Options tunes the constants spec.md §6 calls out by name.
type Options struct {
	// SuccessorListSize is R, the fallback successor list length.
	SuccessorListSize int
	// LiveTimeout is T_live, the liveness probe deadline.
	LiveTimeout time.Duration
	// StabilizeInterval is T_stab, the stabilization period.
	StabilizeInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.SuccessorListSize <= 0 {
		o.SuccessorListSize = 2
	}
	if o.LiveTimeout <= 0 {
		o.LiveTimeout = 500 * time.Millisecond
	}
	if o.StabilizeInterval <= 0 {
		o.StabilizeInterval = 4 * time.Second
	}
	return o
}

// Node is a ring member: finger table, successor list, predecessor,
// local store, and the stabilization protocol that keeps them
// eventually consistent (invariants I1-I4 in spec.md §3).
type Node struct {
	space    Space
	host     Host
	selfKey  Key
	objectID string
	self     LocalPeer
	dialer   Dialer

	opts Options

	fingerMu sync.RWMutex
	finger   []Peer

	succMu     sync.RWMutex
	successors []Peer

	predMu      sync.RWMutex
	predecessor Peer

	storeMu sync.Mutex
	store   map[Key]Value

	log *logrus.Entry
}

// NewNode creates a node bound to host, initially pointing to itself as
// successor (single-node ring). dialer is used only by Join, to open
// the bootstrap connection to a peer named by Host; peers learned later
// (via FindSuccessor/Notify payloads) arrive as Peer handles that the
// transport layer has already built from their stubs.
func NewNode(space Space, host Host, dialer Dialer, opts Options) *Node {
	opts = opts.withDefaults()
	n := &Node{
		space:    space,
		host:     host,
		selfKey:  space.HashHost(host.String()),
		objectID: uuid.NewString(),
		dialer:   dialer,
		opts:     opts,
		store:    make(map[Key]Value),
		log: logrus.WithFields(logrus.Fields{
			"component": "ring",
			"host":      host.String(),
		}),
	}
	n.self = NewLocalPeer(n)

	n.finger = make([]Peer, space.Bits)
	for i := range n.finger {
		n.finger[i] = n.self
	}
	n.log.WithField("key", n.selfKey).Info("node created")
	return n
}

// SelfKey returns this node's identifier.
func (n *Node) SelfKey() Key { return n.selfKey }

// Host returns this node's network identity.
func (n *Node) Host() Host { return n.host }

// Space returns the identifier space this node operates in, used e.g. by
// the REPL to normalise user-supplied keys before routing.
func (n *Node) Space() Space { return n.space }

// LocalPeer returns a Peer handle pointing at this node, for exporting
// over the transport and for use as "self" in comparisons.
func (n *Node) LocalPeer() LocalPeer { return n.self }

// KeyOf returns p's ring identifier. Since key(host) = hash(host) mod
// 2^m is fully deterministic, this never performs network I/O — the
// only operation that actually calls a peer's remote Key method is the
// liveness probe (see IsAlive), which uses it deliberately as a ping.
func (n *Node) KeyOf(p Peer) Key {
	if p == nil {
		return 0
	}
	return n.space.HashHost(p.Host().String())
}

// peerKey is the unexported spelling used internally.
func (n *Node) peerKey(p Peer) Key { return n.KeyOf(p) }

func (n *Node) isAlive(ctx context.Context, p Peer) bool {
	return IsAlive(ctx, p, n.opts.LiveTimeout)
}

// ---- finger table ----

func (n *Node) finger0() Peer {
	n.fingerMu.RLock()
	defer n.fingerMu.RUnlock()
	return n.finger[0]
}

func (n *Node) setFinger(i int, p Peer) {
	n.fingerMu.Lock()
	n.finger[i] = p
	n.fingerMu.Unlock()
}

func (n *Node) setFinger0(p Peer) { n.setFinger(0, p) }

// FingerTable returns a snapshot of the finger table, for diagnostics.
func (n *Node) FingerTable() []Peer {
	n.fingerMu.RLock()
	defer n.fingerMu.RUnlock()
	out := make([]Peer, len(n.finger))
	copy(out, n.finger)
	return out
}

// ---- successor list ----

func (n *Node) successorList() []Peer {
	n.succMu.RLock()
	defer n.succMu.RUnlock()
	out := make([]Peer, len(n.successors))
	copy(out, n.successors)
	return out
}

func (n *Node) setSuccessorList(list []Peer) {
	n.succMu.Lock()
	n.successors = list
	n.succMu.Unlock()
}

// promoteSuccessor picks the first live entry in the successor list,
// skipping index 0 (which, per invariant I3, mirrors the now-dead
// finger[0]). Falls back to self if none qualify.
func (n *Node) promoteSuccessor(ctx context.Context) Peer {
	list := n.successorList()
	for i, p := range list {
		if i == 0 {
			continue
		}
		if n.isAlive(ctx, p) {
			return p
		}
	}
	return n.self
}

// ---- accessors (spec.md §4.5) ----

// Successor returns finger[0], first promoting from the successor list
// if finger[0] is no longer reachable. The successor list is reconciled
// on every call.
func (n *Node) Successor(ctx context.Context) (Peer, error) {
	f0 := n.finger0()
	if !n.isAlive(ctx, f0) {
		promoted := n.promoteSuccessor(ctx)
		n.log.WithFields(logrus.Fields{"dead": f0, "promoted": promoted}).Warn("successor dead, promoting")
		n.setFinger0(promoted)
		f0 = promoted
	}
	n.reconcileSuccessors(ctx, f0)
	return f0, nil
}

// Predecessor returns the current predecessor, clearing it first if it
// has failed the liveness probe.
func (n *Node) Predecessor(ctx context.Context) (Peer, error) {
	n.predMu.RLock()
	p := n.predecessor
	n.predMu.RUnlock()

	if p != nil && !n.isAlive(ctx, p) {
		n.predMu.Lock()
		if PeersEqual(n.predecessor, p) {
			n.predecessor = nil
		}
		p = n.predecessor
		n.predMu.Unlock()
	}
	return p, nil
}

// ---- routing (spec.md §4.5) ----

// FindSuccessor resolves the node responsible for x.
func (n *Node) FindSuccessor(ctx context.Context, x Key) (Peer, error) {
	s, err := n.Successor(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "find successor: successor")
	}
	if x.Between(n.selfKey, n.peerKey(s)) {
		return s, nil
	}

	c := n.ClosestPrecedingFinger(ctx, x)
	if PeersEqual(c, n.self) {
		// No finger brings us closer to x. If x actually falls in our
		// own responsibility range we are correctly the answer (this is
		// the normal single-node-ring case); otherwise we are stuck —
		// report it rather than silently misattributing the key.
		pred, _ := n.Predecessor(ctx)
		if pred == nil || x.Between(n.peerKey(pred), n.selfKey) {
			return n.self, nil
		}
		return nil, ErrNoRoute
	}
	next, err := c.FindSuccessor(ctx, x)
	if err != nil {
		return nil, errors.Wrapf(err, "find successor: hop to %s", c)
	}
	return next, nil
}

// ClosestPrecedingFinger scans the finger table top-down and returns
// the first live entry whose key lies strictly between self and x —
// canonical Chord order (see the Open Question on the source's
// last-match-wins scan in spec.md §9; both orders return a correct,
// live qualifying finger, so the canonical one is used here).
func (n *Node) ClosestPrecedingFinger(ctx context.Context, x Key) Peer {
	n.fingerMu.RLock()
	candidates := make([]Peer, len(n.finger))
	copy(candidates, n.finger)
	n.fingerMu.RUnlock()

	for i := len(candidates) - 1; i >= 0; i-- {
		f := candidates[i]
		if f == nil || PeersEqual(f, n.self) {
			continue
		}
		if n.peerKey(f).BetweenOpen(n.selfKey, x) && n.isAlive(ctx, f) {
			return f
		}
	}
	return n.self
}

// ---- join and notify (spec.md §4.6) ----

// Join contacts a known peer and sets finger[0] to its successor of
// self. The predecessor remains unset until a notify arrives.
func (n *Node) Join(ctx context.Context, known Host) error {
	peer, err := n.dialer.Connect(ctx, known)
	if err != nil {
		return errors.Wrap(err, "join: connect")
	}
	succ, err := peer.FindSuccessor(ctx, n.selfKey)
	if err != nil {
		return errors.Wrap(err, "join: find successor")
	}
	n.setFinger0(succ)
	n.log.WithField("successor", succ).Info("joined ring")
	return nil
}

// Notify is called by a peer claiming it might be our predecessor.
func (n *Node) Notify(_ context.Context, candidate Peer) error {
	if candidate == nil || PeersEqual(candidate, n.self) {
		return nil
	}
	ck := n.peerKey(candidate)

	n.predMu.Lock()
	defer n.predMu.Unlock()
	if n.predecessor == nil {
		n.predecessor = candidate
		n.log.WithField("predecessor", candidate).Info("notify: accepted (was empty)")
		return nil
	}
	pk := n.peerKey(n.predecessor)
	if ck.BetweenOpen(pk, n.selfKey) {
		n.predecessor = candidate
		n.log.WithField("predecessor", candidate).Info("notify: accepted")
	}
	return nil
}

// ---- stabilization (spec.md §4.7) ----

// Stabilize runs steps 1-2 of the stabilization round: reconciling
// finger[0] against the successor's predecessor, then notifying the
// successor of self.
func (n *Node) Stabilize(ctx context.Context) error {
	s, err := n.Successor(ctx)
	if err != nil {
		return errors.Wrap(err, "stabilize: successor")
	}

	c, err := s.Predecessor(ctx)
	if err != nil {
		n.log.WithError(err).Warn("stabilize: get predecessor failed")
	} else if c != nil {
		ck, sk := n.peerKey(c), n.peerKey(s)
		if ck.BetweenOpen(n.selfKey, sk) {
			n.setFinger0(c)
			s = c
		}
	}

	if PeersEqual(s, n.self) {
		return nil
	}
	if err := s.Notify(ctx, n.self); err != nil {
		n.log.WithError(err).Warn("stabilize: notify failed")
	}
	return nil
}

// FixFingers refreshes finger[1..m) by re-resolving each finger's
// target identifier. Finger 0 is maintained by Stabilize/Successor.
func (n *Node) FixFingers(ctx context.Context) error {
	for i := 1; i < int(n.space.Bits); i++ {
		target := n.space.Shift(n.selfKey, i)
		succ, err := n.FindSuccessor(ctx, target)
		if err != nil {
			n.log.WithError(err).WithField("finger", i).Debug("fix fingers: lookup failed")
			continue
		}
		n.setFinger(i, succ)
	}
	return nil
}

// Handoff transfers keys this node is no longer responsible for to
// whichever node now is. Keys are snapshotted before iterating, so
// concurrent handoff rounds never mutate the map while ranging it.
func (n *Node) Handoff(ctx context.Context) error {
	n.storeMu.Lock()
	keys := make([]Key, 0, len(n.store))
	for k := range n.store {
		keys = append(keys, k)
	}
	n.storeMu.Unlock()

	for _, k := range keys {
		responsible, err := n.FindSuccessor(ctx, k)
		if err != nil || PeersEqual(responsible, n.self) {
			continue
		}

		n.storeMu.Lock()
		v, ok := n.store[k]
		if ok {
			delete(n.store, k)
		}
		n.storeMu.Unlock()
		if !ok {
			continue
		}

		if err := responsible.Offer(ctx, k, v); err != nil {
			n.log.WithError(err).WithField("key", k).Warn("handoff: offer failed, key lost")
		}
	}
	return nil
}

// reconcileSuccessors implements step 5 of §4.7: take succ's own
// successor list, prepend succ, truncate to R. If succ is self the
// list is empty (the ring has one member).
func (n *Node) reconcileSuccessors(ctx context.Context, succ Peer) {
	if PeersEqual(succ, n.self) {
		n.setSuccessorList(nil)
		return
	}
	remote, err := succ.Successors(ctx)
	if err != nil {
		n.log.WithError(err).Debug("reconcile successors: fetch failed")
		return
	}
	merged := append([]Peer{succ}, remote...)
	if len(merged) > n.opts.SuccessorListSize {
		merged = merged[:n.opts.SuccessorListSize]
	}
	n.setSuccessorList(merged)
}

// Run drives the stabilization loop (steps 1-5 of §4.7, one round per
// T_stab) until ctx is cancelled.
func (n *Node) Run(ctx context.Context) error {
	return scheduler.Run(ctx, n.opts.StabilizeInterval, func(ctx context.Context) error {
		if err := n.Stabilize(ctx); err != nil {
			n.log.WithError(err).Warn("stabilize round failed")
		}
		if err := n.FixFingers(ctx); err != nil {
			n.log.WithError(err).Warn("fix fingers round failed")
		}
		if err := n.Handoff(ctx); err != nil {
			n.log.WithError(err).Warn("handoff round failed")
		}
		// Stabilization failures are recoverable by the next round
		// (spec.md §7): never return an error here, or the schedule
		// itself would be cancelled and the node would stop healing.
		return nil
	})
}

// ---- get / put (spec.md §4.8) ----

// Get resolves the node responsible for k and returns its bound value.
func (n *Node) Get(ctx context.Context, k Key) (Value, bool, error) {
	r, err := n.FindSuccessor(ctx, k)
	if err != nil {
		return "", false, errors.Wrap(err, "get: find successor")
	}
	if PeersEqual(r, n.self) {
		return n.localGet(k)
	}
	v, found, err := r.Get(ctx, k)
	if err != nil {
		return "", false, errors.Wrapf(err, "get: remote fetch from %s", r)
	}
	return v, found, nil
}

// Put resolves the node responsible for k, stores v there, and returns
// the value previously bound (if any).
func (n *Node) Put(ctx context.Context, k Key, v Value) (Value, bool, error) {
	r, err := n.FindSuccessor(ctx, k)
	if err != nil {
		return "", false, errors.Wrap(err, "put: find successor")
	}
	if PeersEqual(r, n.self) {
		return n.localPut(k, v)
	}
	old, had, err := r.Put(ctx, k, v)
	if err != nil {
		return "", false, errors.Wrapf(err, "put: remote store on %s", r)
	}
	return old, had, nil
}

func (n *Node) localGet(k Key) (Value, bool, error) {
	n.storeMu.Lock()
	defer n.storeMu.Unlock()
	v, ok := n.store[k]
	return v, ok, nil
}

func (n *Node) localPut(k Key, v Value) (Value, bool, error) {
	n.storeMu.Lock()
	defer n.storeMu.Unlock()
	old, had := n.store[k]
	n.store[k] = v
	return old, had, nil
}

// localOffer implements offer(k,v): insert only if k is not already
// present, so repeated handoffs of the same key are idempotent.
func (n *Node) localOffer(k Key, v Value) error {
	n.storeMu.Lock()
	defer n.storeMu.Unlock()
	if _, exists := n.store[k]; !exists {
		n.store[k] = v
	}
	return nil
}
