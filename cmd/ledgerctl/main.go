/*
main.go - Offline ledger command line

PURPOSE:
  Runs the payroll pipeline against an attendance export on disk, without
  the HTTP server or a database. Useful for one-off payroll runs and for
  checking a rules document before deploying it.

COMMANDS:
  compute   Price an export and print the ledger (json, csv or xlsx)
  mapping   Suggest a column mapping from an export's headers
  rules     Print the effective payroll rules as YAML

EXAMPLES:
  ledgerctl compute --input march.xlsx --format csv --output march.csv
  ledgerctl compute --input march.csv --employee "Ana Lima" --from 2025-03-01 --to 2025-03-15
  ledgerctl mapping --input march.csv
  ledgerctl rules --rules site.yaml

SEE ALSO:
  - payroll/compute.go: The pipeline
  - factory/rules.go: Rules and mapping documents
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "ledgerctl",
	Short:         "Attendance ledger command line",
	Long:          `Turns attendance exports into a priced payroll ledger.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline details to stderr")

	rootCmd.AddCommand(computeCmd)
	rootCmd.AddCommand(mappingCmd)
	rootCmd.AddCommand(rulesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
