package transport

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"chordnode/internal/ring"
)

// RemotePeer is the client side of remote invocation: a stub plus the
// Channel used to dial it. Every method opens its own short-lived
// connection, per spec.md §4.2.
type RemotePeer struct {
	stub    ring.Stub
	channel *Channel
}

// NewRemotePeer wraps stub for invocation through channel.
func NewRemotePeer(stub ring.Stub, channel *Channel) *RemotePeer {
	return &RemotePeer{stub: stub, channel: channel}
}

func (p *RemotePeer) Host() ring.Host { return p.stub.Host }
func (p *RemotePeer) Stub() ring.Stub { return p.stub }
func (p *RemotePeer) String() string  { return fmt.Sprintf("remote(%s)", p.stub.Host) }

func (p *RemotePeer) peerFromStub(s ring.Stub) ring.Peer {
	if s.IsZero() {
		return nil
	}
	return NewRemotePeer(s, p.channel)
}

func (p *RemotePeer) call(ctx context.Context, req request) (response, error) {
	resp, err := p.channel.roundTrip(ctx, p.stub.Host, req)
	if err != nil {
		// A transport-level failure means this peer is unreachable, as
		// distinct from an application error the peer returned on
		// purpose (handled below) — wrap ring.ErrUnreachable as the
		// cause so callers can errors.Is against it.
		return response{}, errors.Wrapf(ring.ErrUnreachable, "rpc %s to %s: %s", req.Op, p.stub.Host, err)
	}
	if resp.Err != "" {
		return response{}, errors.Errorf("rpc %s to %s: %s", req.Op, p.stub.Host, resp.Err)
	}
	return resp, nil
}

func (p *RemotePeer) Key(ctx context.Context) (ring.Key, error) {
	resp, err := p.call(ctx, request{Op: opKey})
	if err != nil {
		return 0, err
	}
	return resp.Key, nil
}

func (p *RemotePeer) Successor(ctx context.Context) (ring.Peer, error) {
	resp, err := p.call(ctx, request{Op: opSuccessor})
	if err != nil {
		return nil, err
	}
	return p.peerFromStub(resp.Peer), nil
}

func (p *RemotePeer) Successors(ctx context.Context) ([]ring.Peer, error) {
	resp, err := p.call(ctx, request{Op: opSuccessors})
	if err != nil {
		return nil, err
	}
	peers := make([]ring.Peer, 0, len(resp.Peers))
	for _, s := range resp.Peers {
		peers = append(peers, p.peerFromStub(s))
	}
	return peers, nil
}

func (p *RemotePeer) Predecessor(ctx context.Context) (ring.Peer, error) {
	resp, err := p.call(ctx, request{Op: opPredecessor})
	if err != nil {
		return nil, err
	}
	return p.peerFromStub(resp.Peer), nil
}

func (p *RemotePeer) FindSuccessor(ctx context.Context, x ring.Key) (ring.Peer, error) {
	resp, err := p.call(ctx, request{Op: opFindSuccessor, Key: x})
	if err != nil {
		return nil, err
	}
	return p.peerFromStub(resp.Peer), nil
}

func (p *RemotePeer) Notify(ctx context.Context, candidate ring.Peer) error {
	var stub ring.Stub
	if candidate != nil {
		stub = candidate.Stub()
	}
	_, err := p.call(ctx, request{Op: opNotify, Peer: stub})
	return err
}

func (p *RemotePeer) Get(ctx context.Context, k ring.Key) (ring.Value, bool, error) {
	resp, err := p.call(ctx, request{Op: opGet, Key: k})
	if err != nil {
		return "", false, err
	}
	return resp.Value, resp.Found, nil
}

func (p *RemotePeer) Put(ctx context.Context, k ring.Key, v ring.Value) (ring.Value, bool, error) {
	resp, err := p.call(ctx, request{Op: opPut, Key: k, Value: v})
	if err != nil {
		return "", false, err
	}
	return resp.Value, resp.HadPrior, nil
}

func (p *RemotePeer) Offer(ctx context.Context, k ring.Key, v ring.Value) error {
	_, err := p.call(ctx, request{Op: opOffer, Key: k, Value: v})
	return err
}
