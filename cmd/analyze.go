package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shelfside/scout-cli/internal/model"
	"github.com/shelfside/scout-cli/internal/sheet"
)

var (
	analyzeCost   float64
	analyzeSource string
	analyzeFile   string
	analyzeSave   bool
	analyzeOutput string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [asin...]",
	Short: "Evaluate one or more ASINs against the buying criteria",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var leads []sheet.Lead
		if analyzeFile != "" {
			fromSheet, err := sheet.ParseCSV(analyzeFile)
			if err != nil {
				return err
			}
			leads = fromSheet
		}
		for _, asin := range args {
			lead := sheet.Lead{ASIN: asin, Source: analyzeSource}
			if cmd.Flags().Changed("cost") {
				cost := analyzeCost
				lead.Cost = &cost
			}
			leads = append(leads, lead)
		}
		if len(leads) == 0 {
			return eris.New("analyze: provide ASINs as arguments or a sourcing sheet via --file")
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		results, err := analyzeLeads(ctx, env, leads, analyzeSave, 1)
		if err != nil {
			return err
		}

		return printResults(os.Stdout, results, analyzeOutput)
	},
}

func init() {
	analyzeCmd.Flags().Float64Var(&analyzeCost, "cost", 0, "acquisition cost per copy")
	analyzeCmd.Flags().StringVar(&analyzeSource, "source", "", "sourcing channel name")
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "sourcing sheet CSV")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "persist decisions to the store")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "table", "output format (table, json, csv)")
	rootCmd.AddCommand(analyzeCmd)
}

// printResults renders decisions in the requested format. The table form
// appends summary stats.
func printResults(out io.Writer, results []model.DecisionResult, format string) error {
	switch format {
	case "json":
		return printDecisionsJSON(out, results)
	case "csv":
		return writeDecisionsCSV(out, results)
	case "table":
		formatDecisions(out, results)
		formatSummary(out, summarize(results))
		return nil
	default:
		return eris.Errorf("unknown output format %q", format)
	}
}

// analyzeLeads fetches market data for all leads in one batch, resolves
// cached eligibility, and runs the engine on each lead concurrently.
// Individual failures are logged and skipped, not fatal.
func analyzeLeads(ctx context.Context, env *analysisEnv, leads []sheet.Lead, save bool, concurrency int) ([]model.DecisionResult, error) {
	asins := make([]string, 0, len(leads))
	for _, lead := range leads {
		asins = append(asins, lead.ASIN)
	}

	snapshots, err := env.Keepa.Products(ctx, asins)
	if err != nil {
		return nil, eris.Wrap(err, "fetch market data")
	}
	zap.L().Info("market data fetched",
		zap.Int("requested", len(asins)),
		zap.Int("found", len(snapshots)),
		zap.Int("tokens_left", env.Keepa.TokensLeft()),
	)

	if concurrency < 1 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	results := make([]*model.DecisionResult, len(leads))
	for i, lead := range leads {
		g.Go(func() error {
			log := zap.L().With(zap.String("asin", lead.ASIN))

			snapshot, ok := snapshots[lead.ASIN]
			if !ok {
				log.Warn("no market data, skipping")
				return nil
			}

			status, err := env.Eligibility.Resolve(gctx, lead.ASIN)
			if err != nil {
				log.Error("eligibility lookup failed", zap.Error(err))
				return nil
			}

			result, err := env.Engine.Analyze(snapshot.Signal(status, lead.Cost, lead.Source))
			if err != nil {
				log.Error("analysis failed", zap.Error(err))
				return nil
			}

			if save {
				if err := env.Store.SaveDecision(gctx, result); err != nil {
					log.Error("save decision failed", zap.Error(err))
				}
			}

			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.DecisionResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// decisionSummary holds verdict counts and aggregate stats over a set
// of results.
type decisionSummary struct {
	Total   int
	Acquire int
	Reject  int
	Defer   int
	BuyRate float64 // acquire share of total, 0..1
	AvgROI  float64 // mean estimated ROI over results that carry one
}

func summarize(results []model.DecisionResult) decisionSummary {
	var s decisionSummary
	s.Total = len(results)

	var roiSum float64
	var roiCount int
	for _, r := range results {
		switch r.Verdict {
		case model.VerdictAcquire:
			s.Acquire++
		case model.VerdictReject:
			s.Reject++
		case model.VerdictDefer:
			s.Defer++
		}
		if r.EstimatedROI != nil {
			roiSum += *r.EstimatedROI
			roiCount++
		}
	}
	if s.Total > 0 {
		s.BuyRate = float64(s.Acquire) / float64(s.Total)
	}
	if roiCount > 0 {
		s.AvgROI = roiSum / float64(roiCount)
	}
	return s
}

// formatDecisions writes a tabular list of decisions to out.
func formatDecisions(out io.Writer, results []model.DecisionResult) {
	if len(results) == 0 {
		_, _ = fmt.Fprintln(out, "No decisions.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ASIN\tVERDICT\tCONF\tROI\tMAX_BUY\tREASON")
	_, _ = fmt.Fprintln(w, "----\t-------\t----\t---\t-------\t------")

	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\t%s\n",
			r.ASIN,
			r.Verdict,
			r.Confidence,
			formatPct(r.EstimatedROI),
			formatDollars(r.MaxBuyPrice),
			truncate(r.Reason, 60),
		)
	}
	_ = w.Flush()
}

func formatSummary(out io.Writer, s decisionSummary) {
	_, _ = fmt.Fprintf(out, "\n%d analyzed: %d acquire, %d reject, %d defer (buy rate %.0f%%, avg ROI %.1f%%)\n",
		s.Total, s.Acquire, s.Reject, s.Defer, s.BuyRate*100, s.AvgROI)
}

func printDecisionsJSON(out io.Writer, results []model.DecisionResult) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// writeDecisionsCSV emits decisions as CSV for spreadsheet import.
func writeDecisionsCSV(out io.Writer, results []model.DecisionResult) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"asin", "verdict", "confidence", "roi", "profit", "max_buy", "reason"}); err != nil {
		return eris.Wrap(err, "write csv header")
	}
	for _, r := range results {
		row := []string{
			r.ASIN,
			string(r.Verdict),
			fmt.Sprintf("%.2f", r.Confidence),
			csvFloat(r.EstimatedROI),
			csvFloat(r.EstimatedProfit),
			csvFloat(r.MaxBuyPrice),
			r.Reason,
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "write csv row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "flush csv")
}

func csvFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatPct(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *v)
}

func formatDollars(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *v)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
