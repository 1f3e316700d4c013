package domain

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"reflect"
	"strconv"
)

// Money is an amount in minor units (hundredths). It is exact under addition
// and multiplication by a quantity, and renders in JSON as a decimal number of
// major units, so 4950 is written as 49.5.
type Money int64

const (
	MinorUnit Money = 1
	MajorUnit Money = 100
)

// ErrInvalidAmount reports an amount that is not a number or has more than
// two decimal places.
var ErrInvalidAmount = errors.New("amount must be a number with at most two decimal places")

// ErrAmountOverflow reports an amount that does not fit in Money.
var ErrAmountOverflow = errors.New("amount is too large")

var (
	hundred  = big.NewRat(100, 1)
	maxMoney = new(big.Rat).SetInt64(math.MaxInt64)
	minMoney = new(big.Rat).SetInt64(math.MinInt64)
)

// ParseMoney parses a decimal number of major units such as "50", "49.5" or
// "1e2".
func ParseMoney(s string) (Money, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return 0, ErrInvalidAmount
	}
	r.Mul(r, hundred)
	if !r.IsInt() {
		return 0, ErrInvalidAmount
	}
	if r.Cmp(maxMoney) > 0 || r.Cmp(minMoney) < 0 {
		return 0, ErrAmountOverflow
	}
	return Money(r.Num().Int64()), nil
}

// String formats m in major units with no trailing zeros.
func (m Money) String() string {
	r := new(big.Rat).SetFrac64(int64(m), 100)
	s := r.FloatString(2)
	for s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

// MarshalJSON writes m as a JSON number of major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON reads a JSON number of major units. Other input is reported
// as a *json.UnmarshalTypeError so the decoder can attach the field name.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return &json.UnmarshalTypeError{Value: jsonValueKind(s), Type: reflect.TypeOf(Money(0))}
	}
	v, err := ParseMoney(s)
	if err != nil {
		return &json.UnmarshalTypeError{Value: "number " + s, Type: reflect.TypeOf(Money(0))}
	}
	*m = v
	return nil
}

// JSONType describes the JSON input Money accepts.
func (Money) JSONType() string {
	return "a number with at most two decimal places"
}

func jsonValueKind(s string) string {
	switch s[0] {
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case '[':
		return "array"
	case '{':
		return "object"
	default:
		return "number " + s
	}
}

// Times returns m × qty, or false when the product overflows.
func (m Money) Times(qty int) (Money, bool) {
	if m == 0 || qty == 0 {
		return 0, true
	}
	if m < 0 || qty < 0 {
		return 0, false
	}
	if int64(qty) > math.MaxInt64/int64(m) {
		return 0, false
	}
	return m * Money(qty), true
}

// Plus returns m + n for non-negative amounts, or false when the sum overflows.
func (m Money) Plus(n Money) (Money, bool) {
	if n > 0 && m > Money(math.MaxInt64)-n {
		return 0, false
	}
	return m + n, true
}
