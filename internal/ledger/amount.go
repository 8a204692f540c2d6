package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a decimal number of a commodity. DecimalDigits records the
// precision the number was written with so it can be printed back the same way.
type Amount struct {
	Number        decimal.Decimal
	Commodity     string
	DecimalDigits int
}

// NewAmount creates an amount, deriving the decimal digits from the number's exponent.
func NewAmount(number decimal.Decimal, commodity string) Amount {
	digits := 0
	if exp := number.Exponent(); exp < 0 {
		digits = int(-exp)
	}
	return Amount{Number: number, Commodity: commodity, DecimalDigits: digits}
}

// ParseAmount parses a plain decimal string such as "-12.30" into an amount.
func ParseAmount(s, commodity string) (Amount, error) {
	number, err := ParseNumber(s)
	if err != nil {
		return Amount{}, err
	}
	return NewAmount(number, commodity), nil
}

// ParseNumber parses a decimal string, tolerating surrounding whitespace,
// currency signs and thousands separators ("$1,234.50").
func ParseNumber(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("empty number")
	}
	number, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return number, nil
}

// Neg returns the amount with the sign flipped, keeping commodity and precision.
func (a Amount) Neg() Amount {
	return Amount{Number: a.Number.Neg(), Commodity: a.Commodity, DecimalDigits: a.DecimalDigits}
}

// Equal reports whether both amounts have the same value and commodity.
// Precision is ignored: 1.0 CAD equals 1.00 CAD.
func (a Amount) Equal(b Amount) bool {
	return a.Commodity == b.Commodity && a.Number.Equal(b.Number)
}

// NumberString formats the number with its recorded precision.
func (a Amount) NumberString() string {
	return a.Number.StringFixed(int32(a.DecimalDigits))
}

func (a Amount) String() string {
	return a.NumberString() + " " + a.Commodity
}
