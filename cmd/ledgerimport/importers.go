package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/registry"
)

type importersCmd struct {
	globals *globalFlags
	verbose bool
}

func (*importersCmd) Name() string     { return "importers" }
func (*importersCmd) Synopsis() string { return "list the supported importers" }
func (*importersCmd) Usage() string {
	return `ledgerimport importers [-v]

  Lists every importer with its type, the kind of input it reads and its
  settings. With -v the help text of each importer is printed too.
`
}

func (c *importersCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.verbose, "v", false, "Print the help text of each importer")
}

func (c *importersCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	reg, err := registry.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	listImporters(os.Stdout, reg, c.verbose)
	return subcommands.ExitSuccess
}

func listImporters(w io.Writer, reg *registry.Registry, verbose bool) {
	for _, d := range reg.Descriptors() {
		fmt.Fprintf(w, "%-20s %-8s %s\n", d.Type, d.Kind, d.Name)
		for _, s := range d.Settings {
			fmt.Fprintf(w, "%-20s %-8s   setting %s (%s)\n", "", "", s.Identifier, s.DisplayName)
		}
		if verbose {
			for _, line := range strings.Split(d.Help, "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
			fmt.Fprintln(w)
		}
	}
}
