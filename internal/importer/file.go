package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/parser"
)

// FileKind describes a file importer variant.
type FileKind struct {
	Type string
	// ImportPrefix starts the import name: "<ImportPrefix> File <name>".
	ImportPrefix string
}

// FileImporter imports a statement file with a parser.Parser.
type FileImporter struct {
	*Base
	kind     FileKind
	parser   parser.Parser
	path     string
	account  ledger.AccountName
	currency string
	pipeline *Pipeline[parser.Line]
}

// NewFileImporter creates an importer of the file at path. Without meta,
// metadata is derived from the path alone.
func NewFileImporter(kind FileKind, p parser.Parser, path string, meta *parser.Metadata, env Env) *FileImporter {
	if meta == nil {
		meta, _ = parser.NewMetadata(path, env.now())
	}
	f := &FileImporter{
		Base:   NewBase(kind.Type, env, meta),
		kind:   kind,
		parser: p,
		path:   path,
	}
	f.pipeline = NewPipeline(f.build, env.Delegate)
	return f
}

// ImportName returns "<prefix> File <file name>"
func (f *FileImporter) ImportName() string {
	return fmt.Sprintf("%s File %s", f.kind.ImportPrefix, filepath.Base(f.path))
}

// Path returns the imported file
func (f *FileImporter) Path() string {
	return f.path
}

// Load resolves the account, parses the whole file and sorts the lines
// chronologically. Statement balances become balances of the account.
func (f *FileImporter) Load(ctx context.Context) error {
	if err := f.pipeline.Start(); err != nil {
		return err
	}
	ctx = f.Begin(ctx)
	log := f.Logger(ctx)

	account, err := f.ConfiguredAccount(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve account: %w", err)
	}
	commodity, err := f.Commodity(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to resolve commodity: %w", err)
	}
	f.account = account
	f.currency = commodity

	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.path, err)
	}
	defer file.Close()

	statement, err := f.parser.Parse(ctx, file, f.meta)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", f.path, err)
	}

	lines := statement.Lines
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Date.Before(lines[j].Date)
	})

	balances := make([]ledger.Balance, 0, len(statement.Balances))
	for _, sb := range statement.Balances {
		balances = append(balances, ledger.Balance{
			Date:    sb.Date,
			Account: account,
			Amount:  ledger.NewAmount(sb.Amount, commodity),
		})
	}

	f.pipeline.Fill(lines, balances, nil)
	log.Info().
		Str("account", account.String()).
		Str("file", f.path).
		Int("lines", len(lines)).
		Int("balances", len(balances)).
		Msg("file loaded")
	return nil
}

// NextTransaction maps the next line, nil once all lines were returned.
func (f *FileImporter) NextTransaction(ctx context.Context) (*ImportedTransaction, error) {
	return f.pipeline.Next(ctx)
}

// BalancesToImport returns the statement balances
func (f *FileImporter) BalancesToImport() []ledger.Balance {
	return f.pipeline.Balances()
}

// PricesToImport returns no prices; files carry none.
func (f *FileImporter) PricesToImport() []ledger.Price {
	return f.pipeline.Prices()
}

// build maps a line. A price in the account commodity is no conversion and
// is dropped.
func (f *FileImporter) build(ctx context.Context, line parser.Line) (*ImportedTransaction, error) {
	price := line.Price
	if price != nil && price.Commodity == f.currency {
		price = nil
	}
	return f.BuildTransaction(ctx, Draft{
		Date:        line.Date,
		Description: line.Description,
		Payee:       line.Payee,
		Amount:      line.Amount,
		Price:       price,
		Account:     f.account,
		Commodity:   f.currency,
	})
}
