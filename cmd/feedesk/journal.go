package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"feedesk/internal/cli"
	"feedesk/internal/core"
)

type journalCmd struct {
	roll  string
	limit int
}

func (*journalCmd) Name() string     { return "journal" }
func (*journalCmd) Synopsis() string { return "show recorded mutation transitions" }
func (*journalCmd) Usage() string {
	return `feedesk journal [-roll <roll>] [-n <limit>]

  Prints the local audit trail of mutation state changes, newest first.
`
}

func (c *journalCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.roll, "roll", "", "Only transitions of this roll.")
	f.IntVar(&c.limit, "n", 50, "Maximum number of entries.")
}

func (c *journalCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := openApp(ctx, cli.WithoutAMQP())
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	defer app.Close()
	if app.Journal == nil {
		fmt.Fprintln(os.Stderr, "journal disabled: JOURNAL_DB_PATH is empty")
		return subcommands.ExitFailure
	}

	var entries []core.Transition
	if c.roll != "" {
		entries, err = app.Journal.ForRoll(ctx, c.roll, c.limit)
	} else {
		entries, err = app.Journal.Recent(ctx, c.limit)
	}
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}

	tw := newTable(os.Stdout)
	fmt.Fprintln(tw, "AT\tACTION\tROLL\tSTATE\tDETAIL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.At.Local().Format("2006-01-02 15:04:05"), e.Action, e.Roll, e.State, e.Detail)
	}
	tw.Flush()
	return subcommands.ExitSuccess
}
