package csv

import (
	"fmt"
	"strings"
	"time"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/parser"
)

const lunchOnUsEmployer = "SAP Canada Inc."

// lunchOnUsDateLayouts covers long and abbreviated month names.
var lunchOnUsDateLayouts = []string{
	"January 2, 2006 | 15:04:05",
	"Jan 2, 2006 | 15:04:05",
}

// LunchOnUs parses card exports of the LunchOnUs meal card.
type LunchOnUs struct{}

// Headers returns the accepted header variants
func (LunchOnUs) Headers() [][]string {
	return [][]string{{"date", "type", "amount", "invoice", "remaining", "location"}}
}

// ParseLine maps one export row. Amounts are unsigned in the file; the
// transaction type decides the direction.
func (LunchOnUs) ParseLine(row parser.Row) (parser.Line, error) {
	date, err := parseLunchOnUsDate(row.Get("date"))
	if err != nil {
		return parser.Line{}, fmt.Errorf("row %d: %w", row.Number(), err)
	}
	amount, err := ledger.ParseNumber(row.Get("amount"))
	if err != nil {
		return parser.Line{}, fmt.Errorf("row %d: %w", row.Number(), err)
	}

	line := parser.Line{Date: date}
	switch kind := row.Get("type"); kind {
	case "Activate Card":
		line.Amount = amount
		line.Payee = lunchOnUsEmployer
	case "Cash Out":
		line.Amount = amount.Neg()
		line.Description = "Cash Out"
	default:
		// Purchase, Redeem Unlock, Balance Inquiry with part lock
		line.Amount = amount.Neg()
		line.Description = row.Get("location")
	}
	return line, nil
}

func parseLunchOnUsDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var lastErr error
	for _, layout := range lunchOnUsDateLayouts {
		date, err := parser.ParseDate(layout, value)
		if err == nil {
			return date, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
