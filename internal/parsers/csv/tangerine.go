package csv

import (
	"fmt"
	"strings"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/parser"
)

const (
	tangerineInteracPrefix = "INTERAC e-Transfer From: "
	tangerineInterest      = "Interest Paid"
	tangerinePayee         = "Tangerine"
)

// Tangerine parses Tangerine chequing and savings account exports.
type Tangerine struct{}

// Headers returns the accepted header variants
func (Tangerine) Headers() [][]string {
	return [][]string{{"Date", "Transaction", "Name", "Memo", "Amount"}}
}

// ParseLine maps one export row. The memo is the description unless it is
// empty; incoming e-Transfers combine sender and memo.
func (Tangerine) ParseLine(row parser.Row) (parser.Line, error) {
	value, err := row.Require("Date")
	if err != nil {
		return parser.Line{}, err
	}
	date, err := parser.ParseDate("1/2/2006", value)
	if err != nil {
		return parser.Line{}, fmt.Errorf("row %d: %w", row.Number(), err)
	}
	amount, err := ledger.ParseNumber(row.Get("Amount"))
	if err != nil {
		return parser.Line{}, fmt.Errorf("row %d: %w", row.Number(), err)
	}

	name := row.Get("Name")
	memo := row.Get("Memo")
	description := memo
	if description == "" {
		description = name
	}
	if strings.HasPrefix(name, tangerineInteracPrefix) {
		description = fmt.Sprintf("%s - %s", strings.TrimPrefix(name, tangerineInteracPrefix), memo)
	}

	payee := ""
	if name == tangerineInterest {
		payee = tangerinePayee
	}

	return parser.Line{
		Date:        date,
		Description: description,
		Amount:      amount,
		Payee:       payee,
	}, nil
}
