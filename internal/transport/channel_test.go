package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chordnode/internal/ring"
)

// stubNode is a minimal ring.Peer used only to exercise the transport
// layer in isolation, without pulling in the full Node/stabilization
// machinery.
type stubNode struct {
	host ring.Host
	id   string
	key  ring.Key
	pred ring.Peer
}

func (s *stubNode) Host() ring.Host { return s.host }
func (s *stubNode) Stub() ring.Stub { return ring.Stub{Host: s.host, ObjectID: s.id} }
func (s *stubNode) String() string  { return "stub(" + s.host.String() + ")" }
func (s *stubNode) Key(context.Context) (ring.Key, error)                 { return s.key, nil }
func (s *stubNode) Successor(context.Context) (ring.Peer, error)          { return s, nil }
func (s *stubNode) Successors(context.Context) ([]ring.Peer, error)       { return []ring.Peer{s}, nil }
func (s *stubNode) Predecessor(context.Context) (ring.Peer, error)        { return s.pred, nil }
func (s *stubNode) FindSuccessor(_ context.Context, x ring.Key) (ring.Peer, error) {
	return s, nil
}
func (s *stubNode) Notify(_ context.Context, candidate ring.Peer) error {
	s.pred = candidate
	return nil
}
func (s *stubNode) Get(context.Context, ring.Key) (ring.Value, bool, error) { return "", false, nil }
func (s *stubNode) Put(_ context.Context, _ ring.Key, v ring.Value) (ring.Value, bool, error) {
	return v, false, nil
}
func (s *stubNode) Offer(context.Context, ring.Key, ring.Value) error { return nil }

func TestChannelRoundTripOverTCP(t *testing.T) {
	serverHost := ring.Host{Address: "127.0.0.1", Port: "0"}
	server, err := NewChannel(serverHost)
	require.NoError(t, err)
	defer server.Close()

	_, port, err := net.SplitHostPort(server.listener.Addr().String())
	require.NoError(t, err)
	boundHost := ring.Host{Address: "127.0.0.1", Port: port}
	server.host = boundHost

	local := &stubNode{host: boundHost, id: "server-1", key: 99}
	proxy := NewProxy(local, server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Serve(ctx, proxy)

	client, err := NewChannel(ring.Host{Address: "127.0.0.1", Port: "0"})
	require.NoError(t, err)
	defer client.Close()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), time.Second)
	defer dialCancel()
	peer, err := client.Connect(dialCtx, boundHost)
	require.NoError(t, err)
	require.Equal(t, ring.Stub{Host: boundHost, ObjectID: "server-1"}, peer.Stub())

	k, err := peer.Key(dialCtx)
	require.NoError(t, err)
	require.EqualValues(t, 99, k)

	v, had, err := peer.Put(dialCtx, 7, "value")
	require.NoError(t, err)
	require.False(t, had)
	require.Equal(t, ring.Value("value"), v)
}
