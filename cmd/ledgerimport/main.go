// Command ledgerimport turns bank exports, copied text and downloads into
// beancount transactions, balances and prices for review.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path"

	"github.com/google/subcommands"
)

const version = "0.1.0"

// globalFlags are shared by all commands.
type globalFlags struct {
	configPath string
	ledgerPath string
	logLevel   string
}

func (g *globalFlags) register(f *flag.FlagSet) {
	f.StringVar(&g.configPath, "config", "", "Config file (default ~/.config/ledgerimport/config.yaml)")
	f.StringVar(&g.ledgerPath, "ledger", "", "Existing beancount ledger, overrides the config file")
	f.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides the config file")
}

func newCommander(flags *flag.FlagSet, name string, globals *globalFlags) *subcommands.Commander {
	commander := subcommands.NewCommander(flags, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&importersCmd{globals: globals}, "")
	commander.Register(&importCmd{globals: globals}, "import")
	commander.Register(&textCmd{globals: globals}, "import")
	commander.Register(&mappingsCmd{globals: globals}, "settings")
	commander.Register(&setCmd{globals: globals}, "settings")
	return commander
}

func main() {
	globals := &globalFlags{}
	globals.register(flag.CommandLine)
	versionFlag := flag.Bool("version", false, "Show version")

	commander := newCommander(flag.CommandLine, path.Base(os.Args[0]), globals)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("ledgerimport version %s\n", version)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}
