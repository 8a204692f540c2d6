package csv

import (
	"fmt"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/parser"
)

// N26 parses N26 account exports. Older exports have no Kategorie column.
type N26 struct{}

// Headers returns the accepted header variants
func (N26) Headers() [][]string {
	return [][]string{
		{"Datum", "Empfänger", "Kontonummer", "Transaktionstyp", "Verwendungszweck", "Kategorie", "Betrag (EUR)", "Betrag (Fremdwährung)", "Fremdwährung", "Wechselkurs"},
		{"Datum", "Empfänger", "Kontonummer", "Transaktionstyp", "Verwendungszweck", "Betrag (EUR)", "Betrag (Fremdwährung)", "Fremdwährung", "Wechselkurs"},
	}
}

// ParseLine maps one export row. Card payments with a Fremdwährung carry the
// foreign amount as the total price of the counter posting; the importer
// drops it again when it is in the account commodity.
func (N26) ParseLine(row parser.Row) (parser.Line, error) {
	value, err := row.Require("Datum")
	if err != nil {
		return parser.Line{}, err
	}
	date, err := parser.ParseDate("2006-01-02", value)
	if err != nil {
		return parser.Line{}, fmt.Errorf("row %d: %w", row.Number(), err)
	}
	value, err = row.Require("Betrag (EUR)")
	if err != nil {
		return parser.Line{}, err
	}
	amount, err := ledger.ParseNumber(value)
	if err != nil {
		return parser.Line{}, fmt.Errorf("row %d: %w", row.Number(), err)
	}

	description := row.Get("Empfänger")
	if purpose := row.Get("Verwendungszweck"); purpose != "" {
		description = description + " " + purpose
	}

	line := parser.Line{
		Date:        date,
		Description: description,
		Amount:      amount,
	}

	if currency := row.Get("Fremdwährung"); currency != "" {
		value, err := row.Require("Betrag (Fremdwährung)")
		if err != nil {
			return parser.Line{}, err
		}
		foreign, err := ledger.ParseNumber(value)
		if err != nil {
			return parser.Line{}, fmt.Errorf("row %d: foreign amount: %w", row.Number(), err)
		}
		price := ledger.NewAmount(foreign.Abs(), currency)
		line.Price = &price
	}

	return line, nil
}
