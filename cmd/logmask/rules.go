package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fyrsmithlabs/logmask/internal/masking"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var (
	// rulesStrict fails the rules command when any rule was dropped
	rulesStrict bool
	// checkJSON prints the check result as JSON
	checkJSON bool
)

// rulesCmd lists the loaded rules
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List loaded masking rules",
	Long: `List the masking rules in application order, followed by any rule that
was dropped because its pattern was missing or invalid.

Examples:
  # Validate a rules file in CI
  logmask rules --rules log-masking.properties --strict`,
	Args: cobra.NoArgs,
	RunE: runRules,
}

// checkCmd masks a single message and explains the result
var checkCmd = &cobra.Command{
	Use:   "check <message>",
	Short: "Mask one message and show which rules applied",
	Long: `Mask one message and print the result together with the number of
spans each rule rewrote and any rule skipped for this message.

Examples:
  logmask check --rules log-masking.properties "login password=Secr3t! ok"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rulesCmd.Flags().BoolVar(&rulesStrict, "strict", false, "exit non-zero if the rules file is missing or any rule was dropped")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the result as JSON")
}

func runRules(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	rules := a.engine.Rules()
	if len(rules) == 0 {
		fmt.Fprintln(out, "no masking rules loaded; masking is disabled")
	} else {
		writeRules(out, rules)
	}

	if a.store == nil {
		return nil
	}
	loadErr := a.store.Err()

	var cle *masking.ConfigLoadError
	if errors.As(loadErr, &cle) {
		fmt.Fprintf(out, "\nrules file: %v\n", cle)
	} else if errs := multierr.Errors(loadErr); len(errs) > 0 {
		fmt.Fprintf(out, "\ndropped %d rule(s):\n", len(errs))
		for _, err := range errs {
			fmt.Fprintf(out, "  %v\n", err)
		}
	}

	if rulesStrict && loadErr != nil {
		return fmt.Errorf("rules file %s has problems: %w", a.store.Path(), loadErr)
	}
	return nil
}

func writeRules(w io.Writer, rules masking.Rules) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMATCH\tSUB-PATTERN\tREPLACEMENT")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID(), r.MatchPattern(), r.SubPattern(), r.Replacement())
	}
	_ = tw.Flush()
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	result := a.engine.MaskResult(strings.Join(args, " "))
	out := cmd.OutOrStdout()

	if checkJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintln(out, result.Masked)
	for _, id := range result.RuleIDs() {
		fmt.Fprintf(out, "  %s: %d span(s)\n", id, result.ByRule[id])
	}
	for _, id := range result.Skipped {
		fmt.Fprintf(out, "  %s: skipped\n", id)
	}
	fmt.Fprintln(out, result.Summary())
	return nil
}
