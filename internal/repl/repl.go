// Package repl is the interactive command loop described in spec.md
// §6. It is deliberately thin: input tokenisation and the command set
// itself are the only concerns here; everything about routing,
// storage, and failure handling lives in the ring package.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"chordnode/internal/ring"
)

const prompt = "❯ "

// Run reads whitespace-separated commands from r, one per line, writes
// responses (and the prompt) to w, until r is exhausted or ctx is
// cancelled. ctx is checked each time a line arrives, so a Run blocked
// waiting for input returns only after the next line or the end of r.
func Run(ctx context.Context, r io.Reader, w io.Writer, node *ring.Node) error {
	scanner := bufio.NewScanner(r)
	fmt.Fprint(w, prompt)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			dispatch(ctx, w, node, line)
		}
		fmt.Fprint(w, prompt)
	}
	return scanner.Err()
}

func dispatch(ctx context.Context, w io.Writer, node *ring.Node, line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "key":
		if len(args) != 0 {
			fmt.Fprintln(w, "error: key takes no arguments")
			return
		}
		fmt.Fprintln(w, node.SelfKey())

	case "successor":
		if len(args) != 1 {
			fmt.Fprintln(w, "error: successor requires exactly one integer argument")
			return
		}
		k, err := parseKey(args[0], node.Space())
		if err != nil {
			fmt.Fprintln(w, "error:", err)
			return
		}
		peer, err := node.FindSuccessor(ctx, k)
		if err != nil {
			fmt.Fprintln(w, "error:", err)
			return
		}
		fmt.Fprintln(w, node.KeyOf(peer))

	case "get":
		if len(args) != 1 {
			fmt.Fprintln(w, "error: get requires exactly one integer argument")
			return
		}
		k, err := parseKey(args[0], node.Space())
		if err != nil {
			fmt.Fprintln(w, "error:", err)
			return
		}
		v, found, err := node.Get(ctx, k)
		if err != nil {
			fmt.Fprintln(w, "error:", err)
			return
		}
		if found {
			fmt.Fprintf(w, "{%d: %s}\n", k, v)
		} else {
			fmt.Fprintf(w, "{%d: null}\n", k)
		}

	case "put":
		if len(args) != 2 {
			fmt.Fprintln(w, "error: put requires a key and a value")
			return
		}
		k, err := parseKey(args[0], node.Space())
		if err != nil {
			fmt.Fprintln(w, "error:", err)
			return
		}
		old, had, err := node.Put(ctx, k, ring.Value(args[1]))
		if err != nil {
			fmt.Fprintln(w, "error:", err)
			return
		}
		if had {
			fmt.Fprintf(w, "{%d: %s -> %s}\n", k, old, args[1])
		} else {
			fmt.Fprintf(w, "{%d: %s}\n", k, args[1])
		}

	default:
		fmt.Fprintf(w, "error: unknown command %q\n", cmd)
	}
}

// parseKey parses a non-negative integer and reduces it into space, so
// an argument at or beyond 2^m is routed as its wrapped equivalent
// rather than handled as an out-of-range identifier.
func parseKey(s string, space ring.Space) (ring.Key, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("key must be non-negative")
	}
	return space.Normalize(uint64(v)), nil
}
