package csv

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/parser"
)

// Simplii parses Simplii Financial account exports. The file has separate
// columns for money going out and coming in.
type Simplii struct{}

// Headers returns the accepted header variants
func (Simplii) Headers() [][]string {
	return [][]string{{"Date", "Transaction Details", "Funds Out", "Funds In"}}
}

// ParseLine maps one export row
func (Simplii) ParseLine(row parser.Row) (parser.Line, error) {
	value, err := row.Require("Date")
	if err != nil {
		return parser.Line{}, err
	}
	date, err := parser.ParseDate("01/02/2006", value)
	if err != nil {
		return parser.Line{}, fmt.Errorf("row %d: %w", row.Number(), err)
	}

	var amount decimal.Decimal
	if out := row.Get("Funds Out"); out != "" {
		number, err := ledger.ParseNumber(out)
		if err != nil {
			return parser.Line{}, fmt.Errorf("row %d: funds out: %w", row.Number(), err)
		}
		amount = number.Neg()
	} else {
		number, err := ledger.ParseNumber(row.Get("Funds In"))
		if err != nil {
			return parser.Line{}, fmt.Errorf("row %d: funds in: %w", row.Number(), err)
		}
		amount = number
	}

	description := row.Get("Transaction Details")
	payee := ""
	if description == "INTEREST" {
		payee = "Simplii"
	}

	return parser.Line{
		Date:        date,
		Description: description,
		Amount:      amount,
		Payee:       payee,
	}, nil
}
