package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/shelfside/scout-cli/internal/model"
	"github.com/shelfside/scout-cli/internal/store"
)

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Inspect saved analysis decisions",
}

var decisionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved decisions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		verdict, _ := cmd.Flags().GetString("verdict")
		asin, _ := cmd.Flags().GetString("asin")
		limit, _ := cmd.Flags().GetInt("limit")

		results, err := st.ListDecisions(ctx, store.DecisionFilter{
			Verdict: model.Verdict(verdict),
			ASIN:    asin,
			Limit:   limit,
		})
		if err != nil {
			return eris.Wrap(err, "decisions list")
		}

		if len(results) == 0 {
			fmt.Fprintln(os.Stderr, "No decisions found.")
			return nil
		}

		formatDecisionHistory(os.Stdout, results)
		return nil
	},
}

func init() {
	decisionsListCmd.Flags().String("verdict", "", "filter by verdict (acquire, reject, defer)")
	decisionsListCmd.Flags().String("asin", "", "filter by ASIN")
	decisionsListCmd.Flags().Int("limit", 50, "max number of decisions to display")

	decisionsCmd.AddCommand(decisionsListCmd)
	rootCmd.AddCommand(decisionsCmd)
}

// formatDecisionHistory writes saved decisions with their timestamps.
func formatDecisionHistory(out io.Writer, results []model.DecisionResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ASIN\tVERDICT\tCONF\tROI\tDECIDED\tREASON")
	_, _ = fmt.Fprintln(w, "----\t-------\t----\t---\t-------\t------")

	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\t%s\n",
			r.ASIN,
			r.Verdict,
			r.Confidence,
			formatPct(r.EstimatedROI),
			r.DecidedAt.Format("2006-01-02 15:04"),
			truncate(r.Reason, 50),
		)
	}
	_ = w.Flush()
}
