// README: Common money value object used across modules (OMR held as baisa).
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

const (
	// MoneyScale is the number of baisa in one rial.
	MoneyScale = 1000
	// MoneyDecimals is the currency precision used for display and parsing.
	MoneyDecimals = 3
	// DefaultCurrency is the only currency the platform prices in.
	DefaultCurrency = "OMR"
	// MaxMoney caps parsed amounts (one billion rial) so fee and gateway
	// conversions stay inside int64.
	MaxMoney int64 = 1_000_000_000 * MoneyScale
)

var ErrInvalidAmount = errors.New("invalid amount")

type Money struct {
	Amount   int64
	Currency string
}

// NewMoney wraps an amount of baisa in the platform currency.
func NewMoney(baisa int64) Money {
	return Money{Amount: baisa, Currency: DefaultCurrency}
}

// ParseMoney parses a non-negative decimal string with at most three decimals,
// up to MaxMoney.
func ParseMoney(s string) (Money, error) {
	v, err := parseFixed(s, MoneyDecimals)
	if err != nil || v > MaxMoney {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return NewMoney(v), nil
}

func (m Money) String() string {
	return formatFixed(m.Amount, MoneyDecimals)
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}

func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount + o.Amount, Currency: m.currency()}
}

func (m Money) Sub(o Money) Money {
	return Money{Amount: m.Amount - o.Amount, Currency: m.currency()}
}

// MinorUnits converts to a gateway's integer unit, where factor is the number of
// gateway units per rial. Fractions of a gateway unit are truncated.
func (m Money) MinorUnits(factor int64) int64 {
	return mulDiv(m.Amount, factor, MoneyScale)
}

// FromMinorUnits is the inverse of MinorUnits.
func FromMinorUnits(units, factor int64) Money {
	return NewMoney(mulDiv(units, MoneyScale, factor))
}

func (m Money) currency() string {
	if m.Currency == "" {
		return DefaultCurrency
	}
	return m.Currency
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a decimal string ("5.000") or a JSON number (5.5).
func (m *Money) UnmarshalJSON(b []byte) error {
	raw, err := decimalToken(b)
	if err != nil {
		return err
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func decimalToken(b []byte) (string, error) {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, `"`) {
		var out string
		if err := json.Unmarshal(b, &out); err != nil {
			return "", err
		}
		return out, nil
	}
	return s, nil
}

// parseFixed parses a non-negative decimal into an integer scaled by 10^places.
func parseFixed(s string, places int) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, ErrInvalidAmount
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > places || !digits(whole) || !digits(frac) {
		return 0, ErrInvalidAmount
	}
	frac += strings.Repeat("0", places-len(frac))
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	var f int64
	if places > 0 {
		f, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, err
		}
	}
	scale := pow10(places)
	if w > (1<<62)/scale {
		return 0, ErrInvalidAmount
	}
	return w*scale + f, nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// mulDiv returns a*b/d truncated toward zero. d must be positive.
func mulDiv(a, b, d int64) int64 {
	return mulDivRound(a, b, d, false)
}

// mulDivRound computes a*b/d with a 128-bit intermediate product. With half
// set the magnitude is rounded half up, otherwise truncated. Results outside
// int64 saturate.
func mulDivRound(a, b, d int64, half bool) int64 {
	neg := (a < 0) != (b < 0)
	hi, lo := bits.Mul64(abs64(a), abs64(b))
	if half {
		var carry uint64
		lo, carry = bits.Add64(lo, uint64(d)/2, 0)
		hi += carry
	}
	if hi >= uint64(d) {
		if neg {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	q, _ := bits.Div64(hi, lo, uint64(d))
	if q > math.MaxInt64 {
		q = math.MaxInt64
	}
	if neg {
		return -int64(q)
	}
	return int64(q)
}

func abs64(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

func formatFixed(v int64, places int) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	scale := pow10(places)
	return fmt.Sprintf("%s%d.%0*d", sign, v/scale, places, v%scale)
}

func pow10(n int) int64 {
	p := int64(1)
	for i := 0; i < n; i++ {
		p *= 10
	}
	return p
}
