package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyBetween(t *testing.T) {
	cases := []struct {
		name           string
		lower, upper   Key
		x              Key
		want, wantOpen bool
	}{
		{"simple in range", 10, 30, 20, true, true},
		{"equal to upper", 10, 30, 30, true, false},
		{"equal to lower excluded", 10, 30, 10, false, false},
		{"below lower", 10, 30, 5, false, false},
		{"above upper", 10, 30, 35, false, false},
		{"wrap, in range", 250, 5, 252, true, true},
		{"wrap, equal upper", 250, 5, 5, true, false},
		{"wrap, equal lower excluded", 250, 5, 250, false, false},
		{"wrap, outside", 250, 5, 100, false, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, c.x.Between(c.lower, c.upper))
			require.Equal(t, c.wantOpen, c.x.BetweenOpen(c.lower, c.upper))
		})
	}
}

func TestKeyBetweenFullRingWhenLowerEqualsUpper(t *testing.T) {
	// lower == upper takes the wrap-around branch, which matches every
	// point on the ring, the shared point itself included.
	var lower, upper Key = 42, 42
	require.True(t, Key(0).Between(lower, upper))
	require.True(t, Key(100).Between(lower, upper))
	require.True(t, Key(42).Between(lower, upper)) // x<=upper holds
}

func TestSpaceShift(t *testing.T) {
	s := NewSpace(8) // m=8, modulus 256
	var k Key = 250

	require.EqualValues(t, 251, s.Shift(k, 0)) // (k+1) mod 256
	require.EqualValues(t, 252, s.Shift(k, 1)) // (k+2) mod 256
	require.EqualValues(t, 254, s.Shift(k, 2)) // (k+4) mod 256
	require.EqualValues(t, 2, s.Shift(k, 3))   // (k+8) mod 256 wraps
}

func TestSpaceHashHostDeterministic(t *testing.T) {
	s := NewSpace(32)
	a := s.HashHost("node-a:9000")
	b := s.HashHost("node-a:9000")
	c := s.HashHost("node-b:9000")

	require.Equal(t, a, b)
	require.Less(t, uint64(a), uint64(1)<<32)
	require.Less(t, uint64(c), uint64(1)<<32)
}

func TestSpaceNormalizeWraps(t *testing.T) {
	s := NewSpace(8)
	require.EqualValues(t, 0, s.Normalize(256))
	require.EqualValues(t, 1, s.Normalize(257))
}
