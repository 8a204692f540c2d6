// Package csv provides CSV statement parsing: a header-detecting Source and
// the line parsers of the supported banks.
package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/parser"
)

const utf8BOM = "\ufeff"

// Source adapts a LineParser to parser.Parser. Detection compares the first
// record of a file, with fields trimmed, against the declared header variants.
type Source struct {
	name  string
	lines parser.LineParser
}

// NewSource creates a Source for lines, identified by name.
func NewSource(name string, lines parser.LineParser) *Source {
	return &Source{name: name, lines: lines}
}

// getFileInfo returns a formatted file path string for error messages
func getFileInfo(meta *parser.Metadata) string {
	if meta != nil && meta.FilePath() != "" {
		return fmt.Sprintf(" from %s", meta.FilePath())
	}
	return ""
}

// Name returns the parser identifier
func (s *Source) Name() string {
	return s.name
}

// LineParser returns the wrapped line parser
func (s *Source) LineParser() parser.LineParser {
	return s.lines
}

// CanParse checks the header line only; the path is not consulted.
func (s *Source) CanParse(_ string, header []byte) bool {
	if idx := bytes.IndexByte(header, '\n'); idx >= 0 {
		header = header[:idx]
	}
	record, err := newReader(bytes.NewReader(header)).Read()
	if err != nil {
		return false
	}
	return MatchesHeader(record, s.lines.Headers())
}

// Parse reads every record after the header and maps it with the line parser.
func (s *Source) Parse(ctx context.Context, r io.Reader, meta *parser.Metadata) (*parser.Statement, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	reader := newReader(r)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("CSV file is empty%s", getFileInfo(meta))
		}
		return nil, fmt.Errorf("failed to read CSV header%s: %w", getFileInfo(meta), err)
	}
	header = TrimHeader(header)
	if !MatchesHeader(header, s.lines.Headers()) {
		return nil, fmt.Errorf("unexpected CSV header%s: %q", getFileInfo(meta), strings.Join(header, ","))
	}

	statement := &parser.Statement{}
	for number := 2; ; number++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d%s: %w", number, getFileInfo(meta), err)
		}
		// Skip empty rows
		if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
			continue
		}

		line, err := s.lines.ParseLine(parser.NewRow(header, record, number))
		if err != nil {
			return nil, fmt.Errorf("failed to parse row %d%s: %w", number, getFileInfo(meta), err)
		}
		statement.Lines = append(statement.Lines, line)
	}

	return statement, nil
}

// TrimHeader trims every header field and drops a leading byte order mark.
func TrimHeader(record []string) []string {
	trimmed := make([]string, len(record))
	for i, field := range record {
		if i == 0 {
			field = strings.TrimPrefix(field, utf8BOM)
		}
		trimmed[i] = strings.TrimSpace(field)
	}
	return trimmed
}

// MatchesHeader reports whether record equals one of the variants exactly
// (same fields, same order) after trimming.
func MatchesHeader(record []string, variants [][]string) bool {
	record = TrimHeader(record)
	for _, variant := range variants {
		if len(variant) != len(record) {
			continue
		}
		match := true
		for i := range variant {
			if variant[i] != record[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	return reader
}
