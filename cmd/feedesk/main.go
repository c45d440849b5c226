// Command feedesk runs the fee desk HTTP facade and offers terminal
// commands over the same ledger.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"feedesk/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&serveCmd{}, "")
	for _, c := range []subcommands.Command{
		&studentsCmd{},
		&dashboardCmd{},
		&historyCmd{},
		&remindCmd{},
	} {
		commander.Register(c, "read")
	}
	commander.Register(&collectCmd{}, "write")
	commander.Register(&admitCmd{}, "write")
	commander.Register(&journalCmd{}, "audit")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
