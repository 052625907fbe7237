package ring

import (
	"context"
	"fmt"
)

// Stub is the serialisable descriptor a Proxy hands over the wire: it
// names a remote object (host, port, object id) without itself
// performing any I/O. A zero Stub (empty ObjectID) denotes "no peer".
type Stub struct {
	Host     Host
	ObjectID string
}

// IsZero reports whether the stub denotes the absence of a peer.
func (s Stub) IsZero() bool {
	return s.ObjectID == ""
}

// Peer is a reference to a ring member — local or remote. Every method
// but Host/Stub/String may fail: a Peer can denote an unreachable node
// at any time, and callers must be prepared for that.
type Peer interface {
	// Host returns the peer's network identity. Never fails: it is
	// carried in the handle itself, not fetched over the wire.
	Host() Host
	// Stub returns the wire descriptor for this peer, used to hand it
	// to other nodes (e.g. as the candidate in Notify).
	Stub() Stub
	// Key performs the remote "key" operation. For a RemotePeer this is
	// a genuine round trip and doubles as the liveness probe's
	// underlying call (see IsAlive); for a LocalPeer it never fails.
	Key(ctx context.Context) (Key, error)
	Successor(ctx context.Context) (Peer, error)
	Successors(ctx context.Context) ([]Peer, error)
	// Predecessor may return a nil Peer if the target has none.
	Predecessor(ctx context.Context) (Peer, error)
	FindSuccessor(ctx context.Context, x Key) (Peer, error)
	// Notify may be called with a nil candidate only in error; real
	// callers always supply their own Peer.
	Notify(ctx context.Context, candidate Peer) error
	Get(ctx context.Context, k Key) (Value, bool, error)
	Put(ctx context.Context, k Key, v Value) (Value, bool, error)
	Offer(ctx context.Context, k Key, v Value) error
	String() string
}

// Dialer opens a connection to a known host and returns the Peer it
// exports, per the bootstrap handshake in the transport design: dial,
// read the one unsolicited stub object, close.
type Dialer interface {
	Connect(ctx context.Context, host Host) (Peer, error)
}

// PeersEqual compares two peers by wire identity rather than pointer
// identity, since a RemotePeer is recreated fresh on every lookup.
func PeersEqual(a, b Peer) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Stub() == b.Stub()
}

// LocalPeer short-circuits the network: every operation dispatches
// directly to the in-process Node it wraps.
type LocalPeer struct {
	node *Node
}

// NewLocalPeer wraps n so it can be treated as any other Peer.
func NewLocalPeer(n *Node) LocalPeer {
	return LocalPeer{node: n}
}

func (p LocalPeer) Host() Host { return p.node.host }

func (p LocalPeer) Stub() Stub {
	return Stub{Host: p.node.host, ObjectID: p.node.objectID}
}

func (p LocalPeer) Key(context.Context) (Key, error) {
	return p.node.selfKey, nil
}

func (p LocalPeer) Successor(ctx context.Context) (Peer, error) {
	return p.node.Successor(ctx)
}

func (p LocalPeer) Successors(context.Context) ([]Peer, error) {
	return p.node.successorList(), nil
}

func (p LocalPeer) Predecessor(ctx context.Context) (Peer, error) {
	return p.node.Predecessor(ctx)
}

func (p LocalPeer) FindSuccessor(ctx context.Context, x Key) (Peer, error) {
	return p.node.FindSuccessor(ctx, x)
}

func (p LocalPeer) Notify(ctx context.Context, candidate Peer) error {
	return p.node.Notify(ctx, candidate)
}

func (p LocalPeer) Get(_ context.Context, k Key) (Value, bool, error) {
	return p.node.localGet(k)
}

func (p LocalPeer) Put(_ context.Context, k Key, v Value) (Value, bool, error) {
	return p.node.localPut(k, v)
}

func (p LocalPeer) Offer(_ context.Context, k Key, v Value) error {
	return p.node.localOffer(k, v)
}

func (p LocalPeer) String() string {
	return fmt.Sprintf("local(%s)", p.node.host)
}
