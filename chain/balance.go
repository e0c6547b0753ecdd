package chain

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"math/bits"
)

// BalanceSize is the width of an encoded balance in bytes.
const BalanceSize = 16

// Balance is an unsigned 128-bit amount.
type Balance struct {
	Hi, Lo uint64
}

// NewBalance returns a balance holding v.
func NewBalance(v uint64) Balance {
	return Balance{Lo: v}
}

// ParseBalance parses a decimal amount that fits in 128 bits.
func ParseBalance(s string) (Balance, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 || n.BitLen() > 128 {
		return Balance{}, fmt.Errorf("balance %q: not an unsigned 128-bit decimal", s)
	}
	lo := new(big.Int).And(n, new(big.Int).SetUint64(^uint64(0)))
	hi := new(big.Int).Rsh(n, 64)
	return Balance{Hi: hi.Uint64(), Lo: lo.Uint64()}, nil
}

// Add returns b+o and whether the sum overflowed.
func (b Balance) Add(o Balance) (Balance, bool) {
	lo, carry := bits.Add64(b.Lo, o.Lo, 0)
	hi, overflow := bits.Add64(b.Hi, o.Hi, carry)
	return Balance{Hi: hi, Lo: lo}, overflow != 0
}

// Sub returns b-o and whether the difference underflowed.
func (b Balance) Sub(o Balance) (Balance, bool) {
	lo, borrow := bits.Sub64(b.Lo, o.Lo, 0)
	hi, underflow := bits.Sub64(b.Hi, o.Hi, borrow)
	return Balance{Hi: hi, Lo: lo}, underflow != 0
}

// Mul64 returns b*m and whether the product overflowed.
func (b Balance) Mul64(m uint64) (Balance, bool) {
	hiLo, lo := bits.Mul64(b.Lo, m)
	hiHi, hi := bits.Mul64(b.Hi, m)
	hi, carry := bits.Add64(hi, hiLo, 0)
	return Balance{Hi: hi, Lo: lo}, hiHi != 0 || carry != 0
}

// Cmp compares b and o and returns -1, 0 or +1.
func (b Balance) Cmp(o Balance) int {
	switch {
	case b.Hi < o.Hi:
		return -1
	case b.Hi > o.Hi:
		return 1
	case b.Lo < o.Lo:
		return -1
	case b.Lo > o.Lo:
		return 1
	}
	return 0
}

// Bytes returns the little-endian encoding exposed through the balance file.
func (b Balance) Bytes() [BalanceSize]byte {
	var out [BalanceSize]byte
	binary.LittleEndian.PutUint64(out[0:], b.Lo)
	binary.LittleEndian.PutUint64(out[8:], b.Hi)
	return out
}

// BalanceFromBytes decodes a little-endian balance.
func BalanceFromBytes(buf [BalanceSize]byte) Balance {
	return Balance{
		Lo: binary.LittleEndian.Uint64(buf[0:]),
		Hi: binary.LittleEndian.Uint64(buf[8:]),
	}
}

func (b Balance) String() string {
	n := new(big.Int).SetUint64(b.Hi)
	n.Lsh(n, 64)
	n.Or(n, new(big.Int).SetUint64(b.Lo))
	return n.String()
}

// MarshalText implements encoding.TextMarshaler.
func (b Balance) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Balance) UnmarshalText(text []byte) error {
	parsed, err := ParseBalance(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
