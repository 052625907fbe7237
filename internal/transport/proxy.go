package transport

import (
	"context"

	"chordnode/internal/ring"
)

// Proxy is the server side of remote invocation: it holds the local
// object being exported (a ring.LocalPeer wrapping this process's
// Node) and turns inbound requests into calls against it.
type Proxy struct {
	local   ring.Peer
	channel *Channel
}

// NewProxy exports local over channel. channel is used to reconstruct
// Peer handles for any stub that arrives embedded in a request (e.g.
// the candidate in a notify call).
func NewProxy(local ring.Peer, channel *Channel) *Proxy {
	return &Proxy{local: local, channel: channel}
}

// Stub returns the descriptor handed to every inbound connection as
// the handshake message.
func (p *Proxy) Stub() ring.Stub { return p.local.Stub() }

func (p *Proxy) peerFromStub(s ring.Stub) ring.Peer {
	if s.IsZero() {
		return nil
	}
	return NewRemotePeer(s, p.channel)
}

func (p *Proxy) dispatch(ctx context.Context, req request) response {
	switch req.Op {
	case opKey:
		k, err := p.local.Key(ctx)
		return response{Key: k, Err: errString(err)}

	case opSuccessor:
		peer, err := p.local.Successor(ctx)
		return p.peerResponse(peer, err)

	case opSuccessors:
		peers, err := p.local.Successors(ctx)
		if err != nil {
			return response{Err: errString(err)}
		}
		stubs := make([]ring.Stub, 0, len(peers))
		for _, pr := range peers {
			stubs = append(stubs, pr.Stub())
		}
		return response{Peers: stubs}

	case opPredecessor:
		peer, err := p.local.Predecessor(ctx)
		return p.peerResponse(peer, err)

	case opFindSuccessor:
		peer, err := p.local.FindSuccessor(ctx, req.Key)
		return p.peerResponse(peer, err)

	case opNotify:
		candidate := p.peerFromStub(req.Peer)
		err := p.local.Notify(ctx, candidate)
		return response{Err: errString(err)}

	case opGet:
		v, found, err := p.local.Get(ctx, req.Key)
		return response{Value: v, Found: found, Err: errString(err)}

	case opPut:
		old, had, err := p.local.Put(ctx, req.Key, req.Value)
		return response{Value: old, HadPrior: had, Err: errString(err)}

	case opOffer:
		err := p.local.Offer(ctx, req.Key, req.Value)
		return response{Err: errString(err)}

	default:
		return response{Err: "unknown operation: " + string(req.Op)}
	}
}

func (p *Proxy) peerResponse(peer ring.Peer, err error) response {
	if err != nil {
		return response{Err: err.Error()}
	}
	if peer == nil {
		return response{}
	}
	return response{Peer: peer.Stub()}
}
