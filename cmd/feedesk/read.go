package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"feedesk/internal/cache"
	"feedesk/internal/cli"
	"feedesk/internal/core"
)

type studentsCmd struct {
	query string
	class string
	dues  bool
}

func (*studentsCmd) Name() string     { return "students" }
func (*studentsCmd) Synopsis() string { return "list students with their balances" }
func (*studentsCmd) Usage() string {
	return `feedesk students [-q <name or roll>] [-class <class>] [-dues]

  Fetches the student register from the ledger and prints the matching rows.
`
}

func (c *studentsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.query, "q", "", "Case-insensitive substring of name or roll.")
	f.StringVar(&c.class, "class", "", "Only students of this class.")
	f.BoolVar(&c.dues, "dues", false, "Only students with a positive balance.")
}

func (c *studentsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := openApp(ctx, cli.WithoutJournal(), cli.WithoutAMQP())
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	if _, err := app.Refresher.Students(ctx); err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	preds := []cache.Predicate{cache.ByNameOrRoll(c.query), cache.ByClass(c.class)}
	if c.dues {
		preds = append(preds, core.Student.HasDues)
	}
	students := app.Cache.Filter(cache.All(preds...))

	tw := newTable(os.Stdout)
	fmt.Fprintln(tw, "ROLL\tNAME\tCLASS\tPHONE\tBALANCE")
	for _, s := range students {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Roll, s.Name, s.Class, s.Phone, core.FormatINR(s.Balance))
	}
	tw.Flush()
	fmt.Printf("%d student(s)\n", len(students))
	return subcommands.ExitSuccess
}

type dashboardCmd struct{}

func (*dashboardCmd) Name() string     { return "dashboard" }
func (*dashboardCmd) Synopsis() string { return "show the ledger's dashboard totals" }
func (*dashboardCmd) Usage() string {
	return `feedesk dashboard

  Prints the totals computed by the ledger.
`
}

func (*dashboardCmd) SetFlags(*flag.FlagSet) {}

func (*dashboardCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := openApp(ctx, cli.WithoutJournal(), cli.WithoutAMQP())
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	stats, err := app.Refresher.Stats(ctx)
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	tw := newTable(os.Stdout)
	fmt.Fprintf(tw, "Students\t%d\n", stats.TotalStudents)
	fmt.Fprintf(tw, "Collected\t%s\n", core.FormatINR(stats.TotalCollected))
	fmt.Fprintf(tw, "Pending\t%s\n", core.FormatINR(stats.TotalPending))
	fmt.Fprintf(tw, "Net cash\t%s\n", core.FormatINR(stats.NetCash))
	tw.Flush()
	return subcommands.ExitSuccess
}

type historyCmd struct {
	roll string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list the payments of one student" }
func (*historyCmd) Usage() string {
	return `feedesk history -roll <roll>

  Prints the student's transactions, newest first.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.roll, "roll", "", "Roll number of the student.")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.roll == "" {
		fmt.Fprintln(os.Stderr, "-roll is required")
		return subcommands.ExitUsageError
	}
	app, err := openApp(ctx, cli.WithoutJournal(), cli.WithoutAMQP())
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	txs, err := app.History.ForStudent(ctx, c.roll)
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	if len(txs) == 0 {
		fmt.Println("No transactions.")
		return subcommands.ExitSuccess
	}
	tw := newTable(os.Stdout)
	fmt.Fprintln(tw, "DATE\tAMOUNT\tMODE\tREMARKS")
	for _, tx := range txs {
		date := ""
		if !tx.Date.IsZero() {
			date = tx.Date.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", date, core.FormatINR(tx.Amount), tx.Mode, tx.Remarks)
	}
	tw.Flush()
	return subcommands.ExitSuccess
}

type remindCmd struct {
	roll string
}

func (*remindCmd) Name() string     { return "remind" }
func (*remindCmd) Synopsis() string { return "print a WhatsApp fee reminder link" }
func (*remindCmd) Usage() string {
	return `feedesk remind -roll <roll>

  Builds a wa.me link carrying the student's current balance.
`
}

func (c *remindCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.roll, "roll", "", "Roll number of the student.")
}

func (c *remindCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.roll == "" {
		fmt.Fprintln(os.Stderr, "-roll is required")
		return subcommands.ExitUsageError
	}
	app, err := openApp(ctx, cli.WithoutJournal(), cli.WithoutAMQP())
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	if _, err := app.Refresher.Students(ctx); err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	s, ok := app.Cache.Lookup(c.roll)
	if !ok {
		fail(&core.UnknownStudentError{Roll: c.roll})
		return subcommands.ExitFailure
	}
	link := core.BuildReminderLink(s.Phone, s.Name, s.Balance)
	if link == core.NoLink {
		fmt.Fprintf(os.Stderr, "%s has no phone number on file\n", s.Name)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s owes %s\n%s\n", s.Name, core.FormatINR(s.Balance), link)
	return subcommands.ExitSuccess
}
