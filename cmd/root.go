package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/insights-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "insights-cli",
	Short: "Trusted analytics Q&A over venue sales data",
	Long:  "Answers natural-language questions about venue sales. Simple questions hit canonical aggregations directly; everything else is translated to SQL by Claude, validated for tenant isolation, and cross-checked before an answer is returned.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
