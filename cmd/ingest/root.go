package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taxi_zones/internal/ingest"
	"taxi_zones/internal/store"
)

type options struct {
	mode      string
	limitRows int
	topN      int
	format    string
	logLevel  string
}

// NewRootCommand returns the ingest command. It runs one parquet file through
// the pipeline against an empty store and prints the summary.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "ingest <file.parquet>",
		Short:         "Reconcile zones and routes from an NYC TLC trip parquet file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(cmd, args[0], opts, stdout)
			if err != nil {
				fmt.Fprintln(stderr, "Error:", err)
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.mode, "mode", "create", "Reconciliation policy: create or update")
	flags.IntVar(&opts.limitRows, "limit-rows", ingest.DefaultRowLimit, "Rows to read from the start of the file; 0 reads all")
	flags.IntVar(&opts.topN, "top-n", ingest.DefaultTopNRoutes, "Most frequent routes to reconcile")
	flags.StringVar(&opts.format, "format", "table", "Output format: table or json")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level")
	return cmd
}

func run(cmd *cobra.Command, path string, opts *options, out io.Writer) error {
	if opts.format != "table" && opts.format != "json" {
		return errors.Errorf("unknown format %q", opts.format)
	}
	lvl, err := logrus.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	log.SetLevel(lvl)

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading file")
	}

	s := store.New()
	summary, err := ingest.New(s, log).Run(cmd.Context(), ingest.Request{
		FileName:   filepath.Base(path),
		Data:       data,
		Policy:     opts.mode,
		RowLimit:   opts.limitRows,
		TopNRoutes: opts.topN,
	})
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	writeSummary(out, summary)
	return nil
}

func writeSummary(out io.Writer, s ingest.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"file", "rows_read", "zones_created", "zones_updated", "routes_detected", "routes_created", "routes_updated"})
	t.AppendRow(table.Row{s.FileName, s.RowsRead, s.ZonesCreated, s.ZonesUpdated, s.RoutesDetected, s.RoutesCreated, s.RoutesUpdated})
	t.Render()

	if len(s.Errors) == 0 {
		return
	}
	e := table.NewWriter()
	e.SetOutputMirror(out)
	e.Style().Format.Header = text.FormatDefault
	e.AppendHeader(table.Row{"#", "error"})
	for i, msg := range s.Errors {
		e.AppendRow(table.Row{i + 1, msg})
	}
	e.Render()
}
