// Package transport implements the object-stream Channel/Connection and
// the Proxy/stub remote-invocation machinery described in spec.md §4.2:
// an inbound Channel accepts connections and, per spec, unconditionally
// writes its node's stub as the first message on every one of them;
// after that handshake a connection optionally carries one request and
// response before closing, which is how "subsequent invocations on the
// stub transparently open their own short-lived connections" and the
// one-shot bootstrap handshake ("connect(host) opens a connection,
// reads one object, closes") end up sharing a single simple protocol.
package transport

import (
	"context"
	"net"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"chordnode/internal/ring"
)

// Channel is a TCP endpoint that always listens: NewChannel binds its
// host, and there is no outbound-only Channel. It is also a
// ring.Dialer: Connect performs the bootstrap handshake used by Join.
type Channel struct {
	host     ring.Host
	listener net.Listener
	dialer   net.Dialer
	log      *logrus.Entry
}

// NewChannel binds host and starts listening.
func NewChannel(host ring.Host) (*Channel, error) {
	l, err := net.Listen("tcp", host.String())
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", host)
	}
	return &Channel{
		host:     host,
		listener: l,
		log:      logrus.WithFields(logrus.Fields{"component": "transport", "host": host.String()}),
	}, nil
}

// Address returns the host the Channel was created with. When that
// host's port is "0", it is not updated to the port the OS bound.
func (c *Channel) Address() ring.Host { return c.host }

// Close stops accepting new connections.
func (c *Channel) Close() error { return c.listener.Close() }

// Serve runs the accept loop, dispatching each inbound connection to
// proxy on its own worker goroutine, until ctx is cancelled.
func (c *Channel) Serve(ctx context.Context, proxy *Proxy) error {
	go func() {
		<-ctx.Done()
		_ = c.listener.Close()
	}()

	for {
		raw, err := c.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "accept")
		}
		go c.handle(raw, proxy)
	}
}

// handle is the per-connection worker: write the handshake stub, then
// serve zero or more request/response pairs until the peer closes.
func (c *Channel) handle(raw net.Conn, proxy *Proxy) {
	defer raw.Close()
	conn := newConnection(raw)

	if err := conn.write(proxy.Stub()); err != nil {
		c.log.WithError(err).Debug("handshake write failed")
		return
	}

	for {
		var req request
		if err := conn.read(&req); err != nil {
			return // peer closed after bootstrap, or connection lost
		}
		resp := proxy.dispatch(context.Background(), req)
		if err := conn.write(resp); err != nil {
			c.log.WithError(err).Debug("response write failed")
			return
		}
	}
}

// Connect implements ring.Dialer: dial host, read its unsolicited
// handshake stub, close, and wrap the stub in a Peer that dials fresh
// connections of its own for every subsequent invocation.
func (c *Channel) Connect(ctx context.Context, host ring.Host) (ring.Peer, error) {
	raw, err := c.dialer.DialContext(ctx, "tcp", host.String())
	if err != nil {
		return nil, errors.Wrapf(ring.ErrUnreachable, "connect %s: %s", host, err)
	}
	conn := newConnection(raw)

	var stub ring.Stub
	readErr := conn.read(&stub)
	raw.Close()
	if readErr != nil {
		return nil, errors.Wrapf(ring.ErrUnreachable, "read handshake stub from %s: %s", host, readErr)
	}
	return NewRemotePeer(stub, c), nil
}

// roundTrip opens a fresh connection to host, reads and discards its
// handshake stub, sends req, and returns the matching response.
func (c *Channel) roundTrip(ctx context.Context, host ring.Host, req request) (response, error) {
	raw, err := c.dialer.DialContext(ctx, "tcp", host.String())
	if err != nil {
		return response{}, errors.Wrapf(err, "dial %s", host)
	}
	defer raw.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = raw.SetDeadline(dl)
	}

	conn := newConnection(raw)
	var stub ring.Stub
	if err := conn.read(&stub); err != nil {
		return response{}, errors.Wrapf(err, "read handshake stub from %s", host)
	}
	if err := conn.write(req); err != nil {
		return response{}, errors.Wrapf(err, "write request to %s", host)
	}
	var resp response
	if err := conn.read(&resp); err != nil {
		return response{}, errors.Wrapf(err, "read response from %s", host)
	}
	return resp, nil
}
