package transport

import "chordnode/internal/ring"

// opCode names the wire operation matching spec.md §6's remote
// operation list exactly.
type opCode string

const (
	opKey           opCode = "key"
	opSuccessor     opCode = "successor"
	opSuccessors    opCode = "successors"
	opPredecessor   opCode = "predecessor"
	opFindSuccessor opCode = "find_successor"
	opNotify        opCode = "notify"
	opGet           opCode = "get"
	opPut           opCode = "put"
	opOffer         opCode = "offer"
)

// request is the single envelope type carried for every operation;
// only the fields relevant to Op are populated. Using one concrete,
// field-based struct (rather than an interface) keeps this safe to
// gob-encode without type registration.
type request struct {
	Op    opCode
	Key   ring.Key
	Value ring.Value
	Peer  ring.Stub
}

// response is the matching reply envelope. Err is the empty string on
// success; a non-empty Err becomes a Go error on the client side.
type response struct {
	Err      string
	Key      ring.Key
	Peer     ring.Stub
	Peers    []ring.Stub
	Value    ring.Value
	Found    bool
	HadPrior bool
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
