// Command chordnode starts a single Chord ring node and its REPL.
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"chordnode/internal/repl"
	"chordnode/internal/ring"
	"chordnode/internal/transport"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("chordnode exited with error")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		bits              uint
		stabilizeInterval time.Duration
		successorListSize int
		liveTimeout       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "chordnode <host>[:port] [known-host[:port]]",
		Short: "Run a Chord distributed hash table node",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args, ring.Options{
				SuccessorListSize: successorListSize,
				LiveTimeout:       liveTimeout,
				StabilizeInterval: stabilizeInterval,
			}, bits)
		},
	}

	cmd.Flags().UintVar(&bits, "m-bits", 32, "identifier space size in bits (m)")
	cmd.Flags().DurationVar(&stabilizeInterval, "stabilize-interval", 4*time.Second, "stabilization period (T_stab)")
	cmd.Flags().IntVar(&successorListSize, "successor-list-size", 2, "successor list length (R)")
	cmd.Flags().DurationVar(&liveTimeout, "live-timeout", 500*time.Millisecond, "liveness probe deadline (T_live)")

	return cmd
}

func run(ctx context.Context, args []string, opts ring.Options, bits uint) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	self, err := parseHostPort(args[0])
	if err != nil {
		return errors.Wrap(err, "parse host")
	}
	warnIfPrivileged(self)

	space := ring.NewSpace(bits)
	channel, err := transport.NewChannel(self)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	defer channel.Close()

	node := ring.NewNode(space, self, channel, opts)
	proxy := transport.NewProxy(node.LocalPeer(), channel)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return channel.Serve(gctx, proxy) })

	if len(args) == 2 {
		known, err := parseHostPort(args[1])
		if err != nil {
			return errors.Wrap(err, "parse known host")
		}
		joinCtx, joinCancel := context.WithTimeout(gctx, opts.LiveTimeout*8)
		err = node.Join(joinCtx, known)
		joinCancel()
		if err != nil {
			return errors.Wrap(err, "join")
		}
	}

	g.Go(func() error { return node.Run(gctx) })
	g.Go(func() error { return repl.Run(gctx, os.Stdin, os.Stdout, node) })

	return g.Wait()
}

// parseHostPort accepts "host", "host:port", or ":port". An empty
// address defaults to localhost, per spec.md §6; an empty port defaults
// to "0" (an ephemeral port assigned by the OS).
func parseHostPort(s string) (ring.Host, error) {
	addr, port := s, "0"
	if host, p, err := net.SplitHostPort(s); err == nil {
		addr, port = host, p
	}
	if port == "" {
		port = "0"
	}
	if addr == "" {
		addr = "localhost"
	}
	return ring.Host{Address: addr, Port: port}, nil
}

func warnIfPrivileged(h ring.Host) {
	n, err := strconv.Atoi(h.Port)
	if err != nil {
		return
	}
	if n > 0 && n < 1024 {
		logrus.WithField("port", n).Warn("binding a privileged port")
	}
}
