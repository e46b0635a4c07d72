// Package amount implements the unsigned 128-bit currency amounts.
//
// An amount is expressed in the smallest unit of the currency. It crosses
// every boundary as a decimal string and the arithmetic is exact.
package amount

import (
	"math/big"

	"golang.org/x/xerrors"
)

// Bits is the width of an amount.
const Bits = 128

var maxValue = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), Bits), big.NewInt(1))

// Amount is an immutable unsigned 128-bit integer. The zero value is a valid
// amount of zero.
type Amount struct {
	value *big.Int
}

// Zero returns the amount of zero.
func Zero() Amount {
	return Amount{}
}

// Max returns the biggest amount that can be represented.
func Max() Amount {
	return Amount{value: new(big.Int).Set(maxValue)}
}

// FromUint64 returns the amount of the integer.
func FromUint64(v uint64) Amount {
	return Amount{value: new(big.Int).SetUint64(v)}
}

// FromBig returns the amount of the integer if it fits in 128 unsigned bits,
// otherwise an error.
func FromBig(v *big.Int) (Amount, error) {
	if v.Sign() < 0 {
		return Amount{}, xerrors.Errorf("amount '%s' is negative", v)
	}

	if v.Cmp(maxValue) > 0 {
		return Amount{}, xerrors.Errorf("amount '%s' overflows %d bits", v, Bits)
	}

	return Amount{value: new(big.Int).Set(v)}, nil
}

// Parse returns the amount of the decimal string. Only digits are accepted.
func Parse(text string) (Amount, error) {
	if text == "" {
		return Amount{}, xerrors.New("empty amount")
	}

	for _, c := range text {
		if c < '0' || c > '9' {
			return Amount{}, xerrors.Errorf("malformed amount '%s'", text)
		}
	}

	v, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return Amount{}, xerrors.Errorf("malformed amount '%s'", text)
	}

	return FromBig(v)
}

// Big returns a copy of the amount as a big integer.
func (a Amount) Big() *big.Int {
	if a.value == nil {
		return new(big.Int)
	}

	return new(big.Int).Set(a.value)
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool {
	return a.value == nil || a.value.Sign() == 0
}

// Cmp compares the two amounts and returns -1, 0 or +1.
func (a Amount) Cmp(other Amount) int {
	return a.Big().Cmp(other.Big())
}

// Equal returns true when both amounts are the same.
func (a Amount) Equal(other Amount) bool {
	return a.Cmp(other) == 0
}

// Add returns the sum of the amounts, or an error if it overflows.
func (a Amount) Add(other Amount) (Amount, error) {
	sum, err := FromBig(new(big.Int).Add(a.Big(), other.Big()))
	if err != nil {
		return Amount{}, xerrors.Errorf("failed to add: %v", err)
	}

	return sum, nil
}

// Sub returns the difference of the amounts, or an error if the other amount
// is bigger.
func (a Amount) Sub(other Amount) (Amount, error) {
	diff, err := FromBig(new(big.Int).Sub(a.Big(), other.Big()))
	if err != nil {
		return Amount{}, xerrors.Errorf("failed to subtract: %v", err)
	}

	return diff, nil
}

// String returns the decimal representation of the amount.
func (a Amount) String() string {
	return a.Big().String()
}

// MarshalText implements encoding.TextMarshaler. It returns the decimal
// representation.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It parses the decimal
// representation.
func (a *Amount) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}

	*a = v

	return nil
}
