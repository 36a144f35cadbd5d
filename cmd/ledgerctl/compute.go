package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/warp/attendance-ledger/attendance"
	"github.com/warp/attendance-ledger/factory"
	"github.com/warp/attendance-ledger/generic"
	"github.com/warp/attendance-ledger/ingest"
	"github.com/warp/attendance-ledger/payroll"
)

// =============================================================================
// COMPUTE COMMAND - Price an export
// =============================================================================

var (
	computeInput    string
	computeMapping  string
	computeRules    string
	computeEmployee string
	computeFrom     string
	computeTo       string
	computeFormat   string
	computeOutput   string
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Price an attendance export and write the ledger",
	Long: `Reads a CSV or XLSX attendance export, prices every shift and writes
the ledger as JSON (full result), CSV or XLSX.

Without --mapping the column mapping is guessed from the header row.`,
	Args: cobra.NoArgs,
	RunE: runCompute,
}

func init() {
	computeCmd.Flags().StringVarP(&computeInput, "input", "i", "", "Attendance export (.csv or .xlsx)")
	computeCmd.Flags().StringVarP(&computeMapping, "mapping", "m", "", "Column mapping document (YAML or JSON)")
	computeCmd.Flags().StringVarP(&computeRules, "rules", "r", "", "Payroll rules document (YAML or JSON)")
	computeCmd.Flags().StringVar(&computeEmployee, "employee", "", "Only this employee (case-insensitive)")
	computeCmd.Flags().StringVar(&computeFrom, "from", "", "First day to include (YYYY-MM-DD)")
	computeCmd.Flags().StringVar(&computeTo, "to", "", "Last day to include (YYYY-MM-DD)")
	computeCmd.Flags().StringVarP(&computeFormat, "format", "f", "json", "Output format: json, csv or xlsx")
	computeCmd.Flags().StringVarP(&computeOutput, "output", "o", "", "Output file (default stdout)")
	_ = computeCmd.MarkFlagRequired("input")
}

func runCompute(cmd *cobra.Command, args []string) error {
	write, err := writerFor(computeFormat)
	if err != nil {
		return err
	}

	table, err := readTable(computeInput)
	if err != nil {
		return err
	}

	mapping, err := resolveMapping(computeMapping, table)
	if err != nil {
		return err
	}

	rules, err := resolveRules(computeRules)
	if err != nil {
		return err
	}

	filter, err := buildFilter(computeEmployee, computeFrom, computeTo)
	if err != nil {
		return err
	}

	res, err := payroll.Compute(table.Rows, mapping, nil, payroll.Options{
		Rules:  &rules,
		Filter: filter,
		Logger: cliLogger(),
	})
	if err != nil {
		var noRecords *generic.NoUsableRecordsError
		if errors.As(err, &noRecords) {
			for _, e := range noRecords.Log.First(20) {
				fmt.Fprintln(cmd.ErrOrStderr(), "  "+e.String())
			}
		}
		return err
	}

	out := cmd.OutOrStdout()
	if computeOutput != "" {
		f, err := os.Create(computeOutput)
		if err != nil {
			return fmt.Errorf("create %s: %w", computeOutput, err)
		}
		defer f.Close()
		out = f
	}

	if err := write(out, res); err != nil {
		return err
	}
	if len(res.CleansingLog) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d row(s) skipped or degraded during cleansing\n", len(res.CleansingLog))
	}
	return nil
}

func writerFor(format string) (func(io.Writer, *payroll.Result) error, error) {
	switch strings.ToLower(format) {
	case "json":
		return writeJSON, nil
	case "csv":
		return payroll.WriteCSV, nil
	case "xlsx":
		return payroll.WriteXLSX, nil
	}
	return nil, fmt.Errorf("unknown format %q: use json, csv or xlsx", format)
}

func writeJSON(w io.Writer, res *payroll.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func readTable(path string) (*ingest.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ingest.Read(path, f)
}

func resolveMapping(path string, table *ingest.Table) (attendance.ColumnMapping, error) {
	if path != "" {
		return factory.LoadMapping(path)
	}
	mapping := ingest.SuggestMapping(table.Headers)
	if err := mapping.Validate(); err != nil {
		return mapping, fmt.Errorf("could not guess the column mapping from headers %v: %w", table.Headers, err)
	}
	return mapping, nil
}

func resolveRules(path string) (payroll.Rules, error) {
	if path == "" {
		return payroll.DefaultRules(), nil
	}
	return factory.LoadRules(path)
}

func buildFilter(employee, from, to string) (payroll.Filter, error) {
	f := payroll.Filter{Employee: employee}
	if from != "" {
		tp, err := generic.ParseDay(from)
		if err != nil {
			return f, fmt.Errorf("--from: %w", err)
		}
		f.Period.Start = tp
	}
	if to != "" {
		tp, err := generic.ParseDay(to)
		if err != nil {
			return f, fmt.Errorf("--to: %w", err)
		}
		f.Period.End = tp
	}
	return f, f.Validate()
}

func cliLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
