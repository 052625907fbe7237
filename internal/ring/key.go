// Package ring implements the Chord identifier space, routing, and
// stabilization protocol: the distributed hash table overlay itself.
package ring

import (
	"crypto/sha1"
	"math/big"
)

// Key is an identifier on the ring, an unsigned integer modulo 2^m.
type Key uint64

// Value is the opaque payload stored under a Key.
type Value string

// Space describes an m-bit identifier ring. All Keys produced by a
// given Space are already reduced modulo its size; Key methods that
// compare positions (Between, BetweenOpen) do not need the Space back,
// since their operands are already normalised.
type Space struct {
	Bits uint

	// HashFunc overrides the raw (pre-modulus) hash used to place a host
	// on the ring; nil uses sha1 over the host string. Deterministic
	// test fixtures use this to pin hosts to exact, chosen positions
	// instead of computing sha1 digests by hand.
	HashFunc func(host string) uint64
}

// NewSpace returns the identifier space for the given bit width.
func NewSpace(bits uint) Space {
	if bits == 0 {
		bits = 32
	}
	return Space{Bits: bits}
}

// modulus returns 2^m as a uint64. Bits >= 64 is treated as the full
// native width: Go's uint64 arithmetic wraps exactly as ℤ/2^64 would.
func (s Space) modulus() uint64 {
	if s.Bits >= 64 {
		return 0
	}
	return uint64(1) << s.Bits
}

// Normalize reduces v into [0, 2^m).
func (s Space) Normalize(v uint64) Key {
	m := s.modulus()
	if m == 0 {
		return Key(v)
	}
	return Key(v % m)
}

// Shift returns the start of the i-th finger arc: (k + 2^i) mod 2^m.
// This is the canonical Chord finger-target formula (see the Open
// Question on the source's `(key+1)<<i` variant: that formula produces
// increasing offsets but not the finger targets a Chord ring needs to
// route correctly, so it is not used here).
func (s Space) Shift(k Key, i int) Key {
	return s.Normalize(uint64(k) + (uint64(1) << uint(i)))
}

// HashHost derives a node's identifier deterministically from its host
// string, matching key(host) = hash(host) mod 2^m.
func (s Space) HashHost(host string) Key {
	if s.HashFunc != nil {
		return s.Normalize(s.HashFunc(host))
	}
	sum := sha1.Sum([]byte(host))
	hashInt := new(big.Int).SetBytes(sum[:])
	mod := new(big.Int).Lsh(big.NewInt(1), s.Bits)
	hashInt.Mod(hashInt, mod)
	return Key(hashInt.Uint64())
}

// Between reports whether k lies in the half-open, clockwise arc
// (lower, upper]. If lower < upper the arc does not wrap; otherwise it
// wraps through zero.
func (k Key) Between(lower, upper Key) bool {
	if lower < upper {
		return k > lower && k <= upper
	}
	return k > lower || k <= upper
}

// BetweenOpen reports whether k lies in the open, clockwise arc
// (lower, upper). Used for closest-preceding-finger and notify checks,
// where neither endpoint may be claimed as a match.
func (k Key) BetweenOpen(lower, upper Key) bool {
	if lower < upper {
		return k > lower && k < upper
	}
	return k > lower || k < upper
}
