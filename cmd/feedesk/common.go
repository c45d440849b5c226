package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"feedesk/internal/cli"
	"feedesk/internal/notify"
)

// openApp loads configuration and wires the application for one command.
func openApp(ctx context.Context, opts ...cli.Option) (*cli.App, error) {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	logger := cli.SetupLogger(cfg)
	return cli.BuildApp(ctx, cfg, logger, opts...)
}

// terminalSink prints notifications for the operator.
type terminalSink struct {
	w io.Writer
}

func (s terminalSink) Notify(_ context.Context, message string, kind notify.Kind) {
	fmt.Fprintf(s.w, "[%s] %s\n", kind, message)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
}
