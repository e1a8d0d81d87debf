package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/insights-cli/internal/sqlguard"
)

var validateTenant string

// validateResult is the printable outcome of a standalone validation.
type validateResult struct {
	Valid            bool     `json:"valid"`
	Errors           []string `json:"errors,omitempty"`
	HasVenueFilter   bool     `json:"has_venue_filter"`
	VenueFilterValue string   `json:"venue_filter_value,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate [sql]",
	Short: "Validate a SQL statement for tenant isolation",
	Long:  "Runs the statement validator standalone: checks that the statement is a single SELECT carrying a top-level venue filter for the given tenant. Reads the statement from the argument, or from stdin when absent.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateTenant == "" {
			return eris.New("--tenant is required")
		}

		var sql string
		if len(args) == 1 {
			sql = args[0]
		} else {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return eris.Wrap(err, "read statement from stdin")
			}
			sql = string(raw)
		}

		outcome := sqlguard.Validate(sql, validateTenant)
		result := validateResult{
			Valid:            outcome.Valid,
			Errors:           outcome.Errors,
			HasVenueFilter:   outcome.HasTenantFilter,
			VenueFilterValue: outcome.TenantFilterValue,
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
		if !outcome.Valid {
			cmd.SilenceUsage = true
			return eris.New("statement failed validation")
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateTenant, "tenant", "", "venue ID the statement must be scoped to (required)")
	rootCmd.AddCommand(validateCmd)
}
