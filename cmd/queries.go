package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/insights-cli/internal/store"
)

var (
	queriesTenant string
	queriesRoute  string
	queriesLimit  int
	queriesOffset int
)

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "List audited questions and their answers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Store.Driver == "none" || cfg.Store.Driver == "" {
			return eris.New("the audit store is disabled; set store.driver to postgres or sqlite")
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		records, err := st.ListQueries(cmd.Context(), store.QueryFilter{
			TenantID: queriesTenant,
			RoutedTo: queriesRoute,
			Limit:    queriesLimit,
			Offset:   queriesOffset,
		})
		if err != nil {
			return err
		}
		if records == nil {
			records = []store.QueryRecord{}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	},
}

func init() {
	queriesCmd.Flags().StringVar(&queriesTenant, "tenant", "", "only queries for this venue ID")
	queriesCmd.Flags().StringVar(&queriesRoute, "route", "", "only queries routed to this tier")
	queriesCmd.Flags().IntVar(&queriesLimit, "limit", 20, "maximum number of queries to return")
	queriesCmd.Flags().IntVar(&queriesOffset, "offset", 0, "number of queries to skip")
	rootCmd.AddCommand(queriesCmd)
}
