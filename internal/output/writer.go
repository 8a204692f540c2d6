// Package output writes import results as beancount text that the ledger
// reader can read back.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
)

const dateFormat = "2006-01-02"

// WriteOptions configures where results are written
type WriteOptions struct {
	AppendMode bool   // If true, append to an existing file instead of replacing it
	FilePath   string // Output path (empty = stdout)
}

// Result is what one importer produced.
type Result struct {
	ImportName   string
	Transactions []ledger.Transaction
	Balances     []ledger.Balance
	Prices       []ledger.Price
}

// Empty reports whether there is nothing to write.
func (r Result) Empty() bool {
	return len(r.Transactions) == 0 && len(r.Balances) == 0 && len(r.Prices) == 0
}

// WriteResults writes every non-empty result headed by a comment with its
// import name. Transactions come first, then prices, then balances.
func WriteResults(w io.Writer, results []Result) error {
	bw := bufio.NewWriter(w)
	first := true
	for _, r := range results {
		if r.Empty() {
			continue
		}
		if !first {
			fmt.Fprintln(bw)
		}
		first = false
		if r.ImportName != "" {
			fmt.Fprintf(bw, ";; %s\n\n", r.ImportName)
		}
		for _, t := range r.Transactions {
			if err := writeTransaction(bw, t); err != nil {
				return err
			}
			fmt.Fprintln(bw)
		}
		for _, p := range r.Prices {
			writePrice(bw, p)
		}
		for _, b := range r.Balances {
			writeBalance(bw, b)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

// WriteResultsToFile writes results to file or stdout based on options
func WriteResultsToFile(results []Result, opts WriteOptions) (err error) {
	if opts.FilePath == "" {
		return WriteResults(os.Stdout, results)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if opts.AppendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(opts.FilePath, flags, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open output file %s: %w", opts.FilePath, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close output file %s: %w", opts.FilePath, closeErr)
		}
	}()

	if opts.AppendMode {
		// keep the appended entries apart from what is already there
		if info, statErr := f.Stat(); statErr == nil && info.Size() > 0 {
			if _, err = fmt.Fprintln(f); err != nil {
				return fmt.Errorf("failed to write to %s: %w", opts.FilePath, err)
			}
		}
	}

	if err = WriteResults(f, results); err != nil {
		return fmt.Errorf("failed to write results to %s: %w", opts.FilePath, err)
	}
	return nil
}

// FormatTransaction returns the beancount text of t.
func FormatTransaction(t ledger.Transaction) (string, error) {
	var sb strings.Builder
	if err := writeTransaction(&sb, t); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeTransaction(w io.Writer, t ledger.Transaction) error {
	if len(t.Postings) == 0 {
		return fmt.Errorf("transaction on %s has no postings", t.MetaData.Date.Format(dateFormat))
	}
	flag := t.MetaData.Flag
	if flag == "" {
		flag = ledger.FlagComplete
	}

	header := fmt.Sprintf("%s %s", t.MetaData.Date.Format(dateFormat), flag)
	if t.MetaData.Payee != "" {
		header += fmt.Sprintf(" %s", quote(t.MetaData.Payee))
	}
	header += fmt.Sprintf(" %s", quote(t.MetaData.Narration))
	for _, tag := range t.MetaData.Tags {
		header += " #" + tag
	}
	fmt.Fprintln(w, header)

	writeMetaData(w, t.MetaData.MetaData)

	width := 0
	for _, p := range t.Postings {
		if len(p.Account) > width {
			width = len(p.Account)
		}
	}
	for _, p := range t.Postings {
		line := fmt.Sprintf("  %-*s  %s", width, p.Account, p.Amount.String())
		if p.Cost != nil {
			line += fmt.Sprintf(" {%s}", p.Cost.String())
		}
		if p.Price != nil {
			line += fmt.Sprintf(" @@ %s", p.Price.String())
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// writeMetaData writes metadata sorted by key
func writeMetaData(w io.Writer, meta map[string]string) {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, quote(meta[k]))
	}
}

func writeBalance(w io.Writer, b ledger.Balance) {
	fmt.Fprintf(w, "%s balance %s %s\n", b.Date.Format(dateFormat), b.Account, b.Amount.String())
}

func writePrice(w io.Writer, p ledger.Price) {
	fmt.Fprintf(w, "%s price %s %s\n", p.Date.Format(dateFormat), p.Commodity, p.Amount.String())
}

// quote wraps s in double quotes. Strings cannot contain escapes, so inner
// double quotes become single quotes.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `'`) + `"`
}
