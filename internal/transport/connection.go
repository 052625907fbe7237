package transport

import (
	"encoding/gob"
	"net"
	"sync"
)

// connection wraps one socket with synchronous, framed object I/O.
// Write ordering is preserved; concurrent reads and concurrent writes
// are each serialised internally (a read racing a write is fine — they
// touch independent halves of the duplex stream).
type connection struct {
	conn net.Conn
	enc  *gob.Encoder
	dec  *gob.Decoder

	writeMu sync.Mutex
	readMu  sync.Mutex
}

func newConnection(conn net.Conn) *connection {
	return &connection{
		conn: conn,
		enc:  gob.NewEncoder(conn),
		dec:  gob.NewDecoder(conn),
	}
}

func (c *connection) write(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.enc.Encode(v)
}

func (c *connection) read(v any) error {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	return c.dec.Decode(v)
}

func (c *connection) Close() error {
	return c.conn.Close()
}
