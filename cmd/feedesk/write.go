package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"feedesk/internal/cli"
	"feedesk/internal/core"
	"feedesk/internal/normalize"
)

type collectCmd struct {
	roll    string
	amount  string
	mode    string
	remarks string
}

func (*collectCmd) Name() string     { return "collect" }
func (*collectCmd) Synopsis() string { return "record a fee payment" }
func (*collectCmd) Usage() string {
	return `feedesk collect -roll <roll> -amount <amount> [-mode <mode>] [-remarks <text>]

  Records a payment against the student and refreshes the balances. When the
  guardian has a phone number a reminder link is printed.
`
}

func (c *collectCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.roll, "roll", "", "Roll number of the student.")
	f.StringVar(&c.amount, "amount", "", "Amount paid, e.g. 1500 or 1,500.50.")
	f.StringVar(&c.mode, "mode", core.DefaultPaymentMode, "Payment mode.")
	f.StringVar(&c.remarks, "remarks", "", "Free-form remarks.")
}

func (c *collectCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.roll == "" || c.amount == "" {
		fmt.Fprintln(os.Stderr, "-roll and -amount are required")
		return subcommands.ExitUsageError
	}
	amount, err := core.ParseAmount(c.amount)
	if err != nil {
		fail(err)
		return subcommands.ExitUsageError
	}

	app, err := openApp(ctx, cli.WithSinks(terminalSink{w: os.Stdout}))
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	out, err := app.Coordinator.CollectFee(ctx, core.FeeRequest{
		Roll:    c.roll,
		Amount:  amount,
		Mode:    c.mode,
		Remarks: c.remarks,
	})
	if err != nil {
		return subcommands.ExitFailure
	}
	if r := out.Reminder; r != nil {
		fmt.Printf("Estimated due for %s: %s\n%s\n", r.Name, core.FormatINR(r.EstimatedDue), r.Link)
	}
	return subcommands.ExitSuccess
}

type admitCmd struct {
	roll, name, class, father, phone string
	tuition, van, other, prev        string
}

func (*admitCmd) Name() string     { return "admit" }
func (*admitCmd) Synopsis() string { return "create or update a student" }
func (*admitCmd) Usage() string {
	return `feedesk admit -roll <roll> -name <name> [-class <class>] [-father <name>] [-phone <phone>]
             [-tuition <fee>] [-van <fee>] [-other <fee>] [-prev <balance>]

  Saves the admission form to the ledger. An existing roll is updated.
`
}

func (c *admitCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.roll, "roll", "", "Roll number.")
	f.StringVar(&c.name, "name", "", "Student name.")
	f.StringVar(&c.class, "class", "", "Class.")
	f.StringVar(&c.father, "father", "", "Father's name.")
	f.StringVar(&c.phone, "phone", "", "Guardian phone number.")
	f.StringVar(&c.tuition, "tuition", "", "Tuition fee.")
	f.StringVar(&c.van, "van", "", "Van fee.")
	f.StringVar(&c.other, "other", "", "Other fees.")
	f.StringVar(&c.prev, "prev", "", "Balance carried over.")
}

func (c *admitCmd) form() map[string]string {
	form := map[string]string{}
	for k, v := range map[string]string{
		normalize.KeyRoll:        c.roll,
		normalize.KeyName:        c.name,
		normalize.KeyClass:       c.class,
		normalize.KeyFatherName:  c.father,
		normalize.KeyPhone:       c.phone,
		normalize.KeyTuitionFee:  core.CleanNumber(c.tuition),
		normalize.KeyVanFee:      core.CleanNumber(c.van),
		normalize.KeyOtherFee:    core.CleanNumber(c.other),
		normalize.KeyPrevBalance: core.CleanNumber(c.prev),
	} {
		if v != "" {
			form[k] = v
		}
	}
	return form
}

func (c *admitCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := openApp(ctx, cli.WithSinks(terminalSink{w: os.Stdout}))
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	// Validation failures are reported through the sink.
	if _, err := app.Coordinator.SaveStudent(ctx, c.form()); err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
