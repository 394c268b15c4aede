package schema

import (
	"math/bits"
	"strconv"

	"github.com/yanun0323/errors"
)

// Scale is the number of fractional decimal digits carried by every
// scaled-integer type in this package.
const Scale = 8

// Unit is 10^Scale, the scaled-integer representation of 1.
const Unit int64 = 100_000_000

// Price is a scaled integer with Scale fractional digits.
type Price int64

// Quantity is a scaled integer with Scale fractional digits.
type Quantity int64

// Money is a quote-currency amount, scaled like Price.
type Money int64

// Rate is a dimensionless ratio (fee rate, funding rate, margin rate),
// scaled like Price: Unit == 1.0.
type Rate int64

var ErrValueOverflow = errors.New("scaled value overflow")

// MulDiv computes a*b/div with a 128-bit intermediate product and
// truncation toward zero. ok is false when the result does not fit in
// an int64 or div is zero.
func MulDiv(a, b, div int64) (int64, bool) {
	if div == 0 {
		return 0, false
	}
	neg := false
	ua, ub, ud := absU64(a), absU64(b), absU64(div)
	if (a < 0) != (b < 0) {
		neg = !neg
	}
	if div < 0 {
		neg = !neg
	}
	hi, lo := bits.Mul64(ua, ub)
	if hi >= ud {
		return 0, false
	}
	quo, _ := bits.Div64(hi, lo, ud)
	if neg {
		if quo > 1<<63 {
			return 0, false
		}
		return -int64(quo), true
	}
	if quo > 1<<63-1 {
		return 0, false
	}
	return int64(quo), true
}

func absU64(v int64) uint64 {
	if v < 0 {
		return uint64(^v) + 1
	}
	return uint64(v)
}

// Notional returns price*qty as a Money amount.
func Notional(p Price, q Quantity) (Money, bool) {
	n, ok := MulDiv(int64(p), int64(q), Unit)
	return Money(n), ok
}

// ApplyRate returns v*r for a scaled ratio r.
func ApplyRate(v Money, r Rate) (Money, bool) {
	n, ok := MulDiv(int64(v), int64(r), Unit)
	return Money(n), ok
}

// ParseScaled converts a decimal string into a scaled integer,
// truncating digits beyond Scale.
func ParseScaled(s string) (int64, error) {
	if len(s) == 0 {
		return 0, errors.New("empty scaled value")
	}
	neg := false
	i := 0
	switch s[0] {
	case '-':
		neg = true
		i++
	case '+':
		i++
	}
	if i == len(s) {
		return 0, errors.Errorf("invalid scaled value %q", s)
	}

	var intPart, fracPart int64
	fracDigits := 0
	seenDot := false
	seenDigit := false
	for ; i < len(s); i++ {
		c := s[i]
		if c == '.' {
			if seenDot {
				return 0, errors.Errorf("invalid scaled value %q", s)
			}
			seenDot = true
			continue
		}
		if c < '0' || c > '9' {
			return 0, errors.Errorf("invalid scaled value %q", s)
		}
		d := int64(c - '0')
		seenDigit = true
		if !seenDot {
			if intPart > (1<<63-1-d)/10 {
				return 0, ErrValueOverflow
			}
			intPart = intPart*10 + d
			continue
		}
		if fracDigits < Scale {
			fracPart = fracPart*10 + d
			fracDigits++
		}
	}
	if !seenDigit {
		return 0, errors.Errorf("invalid scaled value %q", s)
	}
	for fracDigits < Scale {
		fracPart *= 10
		fracDigits++
	}
	if intPart > (1<<63-1-fracPart)/Unit {
		return 0, ErrValueOverflow
	}
	v := intPart*Unit + fracPart
	if neg {
		v = -v
	}
	return v, nil
}

// AppendScaled appends the decimal rendering of a scaled integer.
func AppendScaled(buf []byte, value int64) []byte {
	neg := value < 0
	u := uint64(value)
	if neg {
		u = uint64(^value) + 1
	}

	var tmp [32]byte
	digits := strconv.AppendUint(tmp[:0], u, 10)

	if neg {
		buf = append(buf, '-')
	}

	if len(digits) <= Scale {
		buf = append(buf, '0', '.')
		for i := 0; i < Scale-len(digits); i++ {
			buf = append(buf, '0')
		}
		return append(buf, digits...)
	}

	idx := len(digits) - Scale
	buf = append(buf, digits[:idx]...)
	buf = append(buf, '.')
	return append(buf, digits[idx:]...)
}

// FormatScaled renders a scaled integer as a decimal string.
func FormatScaled(value int64) string {
	return string(AppendScaled(nil, value))
}

// Float converts a scaled integer into a float64 for display and for
// derived statistics that do not gate accounting decisions.
func Float(value int64) float64 {
	return float64(value) / float64(Unit)
}

func (p Price) String() string    { return FormatScaled(int64(p)) }
func (q Quantity) String() string { return FormatScaled(int64(q)) }
func (m Money) String() string    { return FormatScaled(int64(m)) }
func (r Rate) String() string     { return FormatScaled(int64(r)) }
