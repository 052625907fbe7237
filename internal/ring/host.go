package ring

import "net"

// Host is a node's stable (address, port) identity. Address is a DNS
// name or IP literal; an empty Address defaults to "localhost" when the
// host is parsed at the CLI boundary.
type Host struct {
	Address string
	Port    string
}

// String renders the host as "address:port", the form used to dial it
// and to derive its ring Key.
func (h Host) String() string {
	return net.JoinHostPort(h.Address, h.Port)
}
