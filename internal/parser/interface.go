package parser

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
)

// Parser is the strategy interface for all file format parsers
type Parser interface {
	// Name returns parser identifier (e.g., "ofx", "simplii")
	Name() string

	// CanParse checks if parser can handle this file.
	// header holds at most the first 512 bytes of the file.
	CanParse(path string, header []byte) bool

	// Parse extracts the lines and statement balances of a file
	Parse(ctx context.Context, r io.Reader, meta *Metadata) (*Statement, error)
}

// LineParser maps one record of a delimited file to a Line.
//
// Headers lists every accepted header variant; a file is only handed to
// ParseLine after its first record matched one of them exactly. Malformed
// fields in a matching file are reported as errors.
type LineParser interface {
	Headers() [][]string
	ParseLine(row Row) (Line, error)
}

// Line is one normalized record. A negative amount is money leaving the
// imported account. Date is a calendar date (UTC midnight).
type Line struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Payee       string
	// Price is the total price of the counter posting, used for foreign
	// currency transactions.
	Price *ledger.Amount
}

// StatementBalance is a balance reported by the source file itself. Like a
// ledger balance assertion it holds at the start of Date.
type StatementBalance struct {
	Date   time.Time
	Amount decimal.Decimal
}

// Statement represents parsed data before mapping
type Statement struct {
	Lines    []Line
	Balances []StatementBalance
}

// Row is a named-column accessor for the current record.
type Row struct {
	number  int
	columns map[string]int
	values  []string
}

// NewRow binds values to the column names of header. number is the 1-based
// record number including the header.
func NewRow(header, values []string, number int) Row {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	return Row{number: number, columns: columns, values: values}
}

// Number returns the 1-based record number
func (r Row) Number() int { return r.number }

// Get returns the trimmed value of column, or "" when the column is missing
// from the header or the record is short.
func (r Row) Get(column string) string {
	idx, ok := r.columns[column]
	if !ok || idx >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[idx])
}

// Require is Get for mandatory columns.
func (r Row) Require(column string) (string, error) {
	value := r.Get(column)
	if value == "" {
		return "", fmt.Errorf("row %d: column %q is empty", r.number, column)
	}
	return value, nil
}

// ParseDate parses value with layout and truncates it to the calendar date.
func ParseDate(layout, value string) (time.Time, error) {
	t, err := time.Parse(layout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return ledger.Day(t), nil
}
