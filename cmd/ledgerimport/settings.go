package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/subcommands"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/settings"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ui"
)

type mappingsCmd struct {
	globals *globalFlags
}

func (*mappingsCmd) Name() string     { return "mappings" }
func (*mappingsCmd) Synopsis() string { return "list the remembered description, payee and account mappings" }
func (*mappingsCmd) Usage() string {
	return `ledgerimport mappings

  Prints the mappings confirmed while reviewing imports.
`
}

func (*mappingsCmd) SetFlags(*flag.FlagSet) {}

func (c *mappingsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, ctx, err := openApp(ctx, c.globals, stdinTerminal())
	if err != nil {
		ui.Error(err.Error())
		return subcommands.ExitFailure
	}
	defer a.Close()

	mappings, err := a.settings.AllMappings(ctx)
	if err != nil {
		ui.Error(err.Error())
		return subcommands.ExitFailure
	}
	printMappings(os.Stdout, mappings)
	return subcommands.ExitSuccess
}

func printMappings(w io.Writer, m settings.Mappings) {
	printTable(w, "Descriptions", m.Descriptions)
	printTable(w, "Payees", m.Payees)
	printTable(w, "Accounts", m.Accounts)
}

func printTable(w io.Writer, title string, values map[string]string) {
	fmt.Fprintf(w, "%s (%d)\n", title, len(values))
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s -> %s\n", k, values[k])
	}
}

type setCmd struct {
	globals *globalFlags
}

func (*setCmd) Name() string     { return "set" }
func (*setCmd) Synopsis() string { return "change the default commodity or an importer setting" }
func (*setCmd) Usage() string {
	return `ledgerimport set commodity <symbol>
ledgerimport set <importer-type> <setting> <value>

  Stores the fallback commodity or a setting of an importer. Run
  "ledgerimport importers" to see the settings of each importer.
`
}

func (*setCmd) SetFlags(*flag.FlagSet) {}

func (c *setCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 && f.NArg() != 3 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	a, ctx, err := openApp(ctx, c.globals, stdinTerminal())
	if err != nil {
		ui.Error(err.Error())
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := applySetting(ctx, a, f.Args()); err != nil {
		ui.Error(err.Error())
		return subcommands.ExitUsageError
	}
	ui.Success("saved")
	return subcommands.ExitSuccess
}

func applySetting(ctx context.Context, a *app, args []string) error {
	if len(args) == 2 {
		if args[0] != "commodity" {
			return fmt.Errorf("unknown setting %q", args[0])
		}
		return a.settings.SetCommodity(ctx, args[1])
	}
	if len(args) != 3 {
		return fmt.Errorf("expected <importer-type> <setting> <value>")
	}

	d, ok := a.registry.Descriptor(args[0])
	if !ok {
		return fmt.Errorf("unknown importer type %q", args[0])
	}
	for _, s := range d.Settings {
		if s.Identifier == args[1] {
			return a.settings.SetImporterSetting(ctx, d.Type, s, args[2])
		}
	}
	return fmt.Errorf("importer %s has no setting %q", d.Type, args[1])
}
