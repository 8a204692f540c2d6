package csv

import (
	"fmt"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/parser"
)

const rogersCashBack = "CashBack / Remises"

// Rogers parses Rogers Bank credit card exports. Charges are positive in the
// file and become outflows of the card account.
type Rogers struct{}

// Headers returns the accepted header variants
func (Rogers) Headers() [][]string {
	return [][]string{{"Date", "Activity Type", "Merchant Name", "Merchant Category Description", "Amount", "Rewards"}}
}

// ParseLine maps one export row
func (Rogers) ParseLine(row parser.Row) (parser.Line, error) {
	value, err := row.Require("Date")
	if err != nil {
		return parser.Line{}, err
	}
	date, err := parser.ParseDate("2006-01-02", value)
	if err != nil {
		return parser.Line{}, fmt.Errorf("row %d: %w", row.Number(), err)
	}
	amount, err := ledger.ParseNumber(row.Get("Amount"))
	if err != nil {
		return parser.Line{}, fmt.Errorf("row %d: %w", row.Number(), err)
	}

	description := row.Get("Merchant Name")
	payee := ""
	if description == rogersCashBack {
		payee = "Rogers"
	}

	return parser.Line{
		Date:        date,
		Description: description,
		Amount:      amount.Neg(),
		Payee:       payee,
	}, nil
}
