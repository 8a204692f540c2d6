package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/importer"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/logger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/output"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/scanner"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ui"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/validate"
)

// outputFlags are shared by the commands writing results.
type outputFlags struct {
	outputFile string
	appendMode bool
	review     bool
}

func (o *outputFlags) register(f *flag.FlagSet) {
	f.StringVar(&o.outputFile, "o", "", "Output beancount file (default: the config file output, else stdout)")
	f.BoolVar(&o.appendMode, "append", false, "Append to the output file instead of replacing it")
	f.BoolVar(&o.review, "review", true, "Review editable transactions and remember the answers")
}

func (o *outputFlags) options(a *app) output.WriteOptions {
	path := o.outputFile
	if path == "" {
		path = a.cfg.Output
	}
	return output.WriteOptions{FilePath: path, AppendMode: o.appendMode}
}

func (o *outputFlags) reviewer(a *app) reviewer {
	if !o.review {
		return nil
	}
	return interactiveReview{requester: a.delegate}
}

type importCmd struct {
	globals *globalFlags
	output  outputFlags
	dir     string
	dryRun  bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import statement files" }
func (*importCmd) Usage() string {
	return `ledgerimport import [-dir <directory>] [-o <file>] [-append] [-review=false] [file ...]

  Imports CSV, OFX and QFX statements. The importer of each file is detected
  from its header. Files found with -dir may be organized as
  <dir>/<importer-type>/<account-number>/<file>, the account number then
  selects the ledger account.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dir, "dir", "", "Directory to scan for statements")
	f.BoolVar(&c.dryRun, "dry-run", false, "Only list the files and their importers")
	c.output.register(f)
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.dir == "" && f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: pass files or -dir")
		return subcommands.ExitUsageError
	}
	delegate := stdinTerminal()
	a, ctx, err := openApp(ctx, c.globals, delegate)
	if err != nil {
		ui.Error(err.Error())
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := c.run(ctx, a, f.Args(), os.Stdout); err != nil {
		ui.Error(err.Error())
		return subcommands.ExitFailure
	}
	if delegate.Errors() > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *importCmd) run(ctx context.Context, a *app, files []string, dryRunOut io.Writer) error {
	importers, err := c.resolve(ctx, a, files)
	if err != nil {
		return err
	}
	if len(importers) == 0 {
		return fmt.Errorf("no importable files found")
	}
	if c.dryRun {
		for _, imp := range importers {
			fmt.Fprintf(dryRunOut, "%s\t%s\n", imp.Type(), imp.ImportName())
		}
		return nil
	}
	return runImporters(ctx, a, importers, c.output)
}

// resolve finds the importer of every file. Files no importer accepts are
// skipped with a warning.
func (c *importCmd) resolve(ctx context.Context, a *app, files []string) ([]importer.Importer, error) {
	log := logger.FromContext(ctx)
	env := a.env()
	var importers []importer.Importer

	if c.dir != "" {
		results, err := scanner.New(c.dir).Scan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory %s: %w", c.dir, err)
		}
		ui.Success(fmt.Sprintf("Found %d statement files", len(results)))
		for _, r := range results {
			imp, ok := a.registry.ResolveMetadata(r.Metadata, env)
			if !ok {
				ui.Warning(fmt.Sprintf("no importer for %s", r.Path))
				continue
			}
			if dirType := r.Metadata.ImporterType(); dirType != "" && dirType != imp.Type() {
				log.Debug().Str("file", r.Path).Str("directory_type", dirType).Str("detected_type", imp.Type()).Msg("directory does not match detected importer")
			}
			importers = append(importers, imp)
		}
	}

	for _, path := range files {
		imp, ok := a.registry.Resolve(path, env)
		if !ok {
			ui.Warning(fmt.Sprintf("no importer for %s", path))
			continue
		}
		importers = append(importers, imp)
	}
	return importers, nil
}

// runImporters collects every importer in turn, validates and writes the
// results. An importer failing to load is reported and skipped.
func runImporters(ctx context.Context, a *app, importers []importer.Importer, o outputFlags) error {
	ui.Header("Importing")
	validator := validate.New(a.ledger)
	var results []output.Result
	failed := 0

	for i, imp := range importers {
		ui.Step(i+1, len(importers), imp.ImportName())
		result, toValidate, err := collect(ctx, imp, o.reviewer(a))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			ui.Error(err.Error())
			failed++
			continue
		}
		if report(validator.ValidateImport(toValidate)) {
			failed++
		}
		ui.Success(fmt.Sprintf("%d transactions, %d balances, %d prices", len(result.Transactions), len(result.Balances), len(result.Prices)))
		results = append(results, result)
	}

	if err := output.WriteResultsToFile(results, o.options(a)); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d imports had errors", failed, len(importers))
	}
	return nil
}

type textCmd struct {
	globals      *globalFlags
	output       outputFlags
	transactions string
	balances     string
}

func (*textCmd) Name() string     { return "text" }
func (*textCmd) Synopsis() string { return "import text copied from the ManuLife website" }
func (*textCmd) Usage() string {
	return `ledgerimport text [-transactions <file>] [-balances <file>] [-o <file>]

  Imports a contribution and the fund balances copied from the ManuLife
  website. Use - to read a block from stdin.
`
}

func (c *textCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.transactions, "transactions", "", "File with the copied contribution")
	f.StringVar(&c.balances, "balances", "", "File with the copied balances")
	c.output.register(f)
}

func (c *textCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.transactions == "" && c.balances == "" {
		fmt.Fprintln(os.Stderr, "Error: pass -transactions and/or -balances")
		return subcommands.ExitUsageError
	}
	if c.transactions == "-" && c.balances == "-" {
		fmt.Fprintln(os.Stderr, "Error: only one block can be read from stdin")
		return subcommands.ExitUsageError
	}
	transactionText, err := readText(c.transactions)
	if err != nil {
		ui.Error(err.Error())
		return subcommands.ExitFailure
	}
	balanceText, err := readText(c.balances)
	if err != nil {
		ui.Error(err.Error())
		return subcommands.ExitFailure
	}

	delegate := stdinTerminal()
	a, ctx, err := openApp(ctx, c.globals, delegate)
	if err != nil {
		ui.Error(err.Error())
		return subcommands.ExitFailure
	}
	defer a.Close()

	imp := a.registry.ResolveText(a.env(), transactionText, balanceText)
	if err := runImporters(ctx, a, []importer.Importer{imp}, c.output); err != nil {
		ui.Error(err.Error())
		return subcommands.ExitFailure
	}
	if delegate.Errors() > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func readText(path string) (string, error) {
	switch path {
	case "":
		return "", nil
	case "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(data), nil
	}
}
