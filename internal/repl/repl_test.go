package repl

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chordnode/internal/ring"
)

func newSingleNode(t *testing.T) *ring.Node {
	t.Helper()
	space := ring.NewSpace(32)
	host := ring.Host{Address: "repl-test", Port: "0"}
	return ring.NewNode(space, host, nilDialer{}, ring.Options{
		SuccessorListSize: 2,
		LiveTimeout:       50 * time.Millisecond,
		StabilizeInterval: time.Hour,
	})
}

type nilDialer struct{}

func (nilDialer) Connect(context.Context, ring.Host) (ring.Peer, error) {
	return nil, ring.ErrUnreachable
}

func runREPL(t *testing.T, node *ring.Node, input string) string {
	t.Helper()
	var out bytes.Buffer
	err := Run(context.Background(), strings.NewReader(input), &out, node)
	require.NoError(t, err)
	return out.String()
}

func TestREPLKeyCommand(t *testing.T) {
	node := newSingleNode(t)
	out := runREPL(t, node, "key\n")
	require.Contains(t, out, prompt)
	require.Contains(t, out, fmt.Sprintf("%d\n", node.SelfKey()))
}

func TestREPLPutThenGet(t *testing.T) {
	node := newSingleNode(t)
	out := runREPL(t, node, "put 5 hello\nget 5\nput 5 world\n")
	require.Contains(t, out, "{5: hello}")
	require.Contains(t, out, "{5: hello -> world}")
}

func TestREPLGetMissingKey(t *testing.T) {
	node := newSingleNode(t)
	out := runREPL(t, node, "get 123\n")
	require.Contains(t, out, "{123: null}")
}

func TestREPLRejectsBadArgs(t *testing.T) {
	node := newSingleNode(t)
	out := runREPL(t, node, "get\nget not-a-number\nsuccessor\n")
	require.Contains(t, out, "error: get requires exactly one integer argument")
	require.Contains(t, out, "invalid integer")
	require.Contains(t, out, "error: successor requires exactly one integer argument")
}

func TestREPLUnknownCommand(t *testing.T) {
	node := newSingleNode(t)
	out := runREPL(t, node, "frobnicate\n")
	require.Contains(t, out, `unknown command "frobnicate"`)
}
