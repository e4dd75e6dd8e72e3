package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// PercentScale is the number of basis points in one percent.
const PercentScale = 100

var ErrInvalidPercent = errors.New("percentage must be between 0 and 100")

// Percent is a percentage stored in basis points: 10.5% is 1050.
type Percent int64

// ParsePercent parses a decimal percentage with at most two decimals in [0, 100].
func ParsePercent(s string) (Percent, error) {
	v, err := parseFixed(s, 2)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPercent, s)
	}
	p := Percent(v)
	if !p.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPercent, s)
	}
	return p, nil
}

func (p Percent) Valid() bool {
	return p >= 0 && p <= 100*PercentScale
}

func (p Percent) String() string {
	return formatFixed(int64(p), 2)
}

// Of returns p percent of m, rounded half up to the nearest baisa.
func (p Percent) Of(m Money) Money {
	const denom = 100 * PercentScale
	return Money{Amount: mulDivRound(m.Amount, int64(p), denom, true), Currency: m.currency()}
}

func (p Percent) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Percent) UnmarshalJSON(b []byte) error {
	raw, err := decimalToken(b)
	if err != nil {
		return err
	}
	parsed, err := ParsePercent(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
