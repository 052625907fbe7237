package transport

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"chordnode/internal/ring"
)

func TestConnectionWriteReadRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cc := newConnection(client)
	sc := newConnection(server)

	want := request{Op: opPut, Key: 42, Value: "payload", Peer: ring.Stub{Host: ring.Host{Address: "h", Port: "1"}, ObjectID: "obj"}}

	errCh := make(chan error, 1)
	go func() { errCh <- cc.write(want) }()

	var got request
	require.NoError(t, sc.read(&got))
	require.NoError(t, <-errCh)
	require.Equal(t, want, got)
}

func TestConnectionConcurrentWritesAreSerialised(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cc := newConnection(client)
	sc := newConnection(server)

	const n = 10
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		i := i
		go func() { errCh <- cc.write(request{Op: opGet, Key: ring.Key(i)}) }()
	}

	seen := make(map[ring.Key]bool)
	for i := 0; i < n; i++ {
		var got request
		require.NoError(t, sc.read(&got))
		seen[got.Key] = true
	}
	for i := 0; i < n; i++ {
		require.True(t, seen[ring.Key(i)])
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errCh)
	}
}
