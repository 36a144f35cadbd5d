package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/warp/attendance-ledger/factory"
	"github.com/warp/attendance-ledger/ingest"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAPPING / RULES COMMANDS - Inspect the documents compute would use
// =============================================================================

var (
	mappingInput string
	rulesPath    string
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Suggest a column mapping from an export's headers",
	Long: `Prints the column mapping compute would guess for the export, as a
YAML document that can be edited and passed back with --mapping.`,
	Args: cobra.NoArgs,
	RunE: runMapping,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the effective payroll rules",
	Long:  `Prints the house rules, or the given rules document merged over them, as YAML.`,
	Args:  cobra.NoArgs,
	RunE:  runRules,
}

func init() {
	mappingCmd.Flags().StringVarP(&mappingInput, "input", "i", "", "Attendance export (.csv or .xlsx)")
	_ = mappingCmd.MarkFlagRequired("input")

	rulesCmd.Flags().StringVarP(&rulesPath, "rules", "r", "", "Payroll rules document to merge over the defaults")
}

func runMapping(cmd *cobra.Command, args []string) error {
	table, err := readTable(mappingInput)
	if err != nil {
		return err
	}
	mapping := ingest.SuggestMapping(table.Headers)

	out, err := yaml.Marshal(mapping)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))

	if err := mapping.Validate(); err != nil {
		return fmt.Errorf("suggested mapping is incomplete: %w", err)
	}
	return nil
}

func runRules(cmd *cobra.Command, args []string) error {
	rules, err := resolveRules(rulesPath)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(factory.ToDocument(rules))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}
