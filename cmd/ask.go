package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/insights-cli/internal/model"
)

var (
	askTenant string
	askUser   string
	askJSON   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one analytics question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if askTenant == "" {
			return eris.New("--tenant is required")
		}

		env, err := initPipeline(cmd.Context(), "ask")
		if err != nil {
			return err
		}
		defer env.Close()

		q := model.NewQuestion(strings.Join(args, " "), askTenant, askUser)
		answer := env.Pipeline.ProcessQuery(cmd.Context(), q)

		if askJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(answer)
		}

		fmt.Println(answer.Text)
		fmt.Printf("\nconfidence: %.2f  route: %s\n", answer.ConfidenceScore, answer.Metadata.RoutedTo)
		if cv := answer.Metadata.ConsensusVoting; cv != nil {
			fmt.Printf("consensus: %d/%d agreed (%d%%, %s)\n",
				cv.MajorityGroupSize, cv.TotalGenerations, cv.AgreementPercent, cv.Confidence)
		}
		if cc := answer.Metadata.CrossCheck; cc != nil {
			for _, w := range cc.Warnings {
				fmt.Printf("warning: %s\n", w)
			}
		}
		if answer.Metadata.ResultValidationFailed {
			fmt.Println("note: the generated result failed plausibility validation and was withheld")
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askTenant, "tenant", "", "venue ID the question is scoped to (required)")
	askCmd.Flags().StringVar(&askUser, "user", "", "user ID for the audit trail")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full structured answer as JSON")
	rootCmd.AddCommand(askCmd)
}
