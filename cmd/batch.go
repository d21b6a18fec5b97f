package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shelfside/scout-cli/internal/sheet"
)

var (
	batchFile   string
	batchLimit  int
	batchOutput string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze a sourcing sheet and persist every decision",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		leads, err := sheet.ParseCSV(batchFile)
		if err != nil {
			return err
		}
		if batchLimit > 0 && len(leads) > batchLimit {
			leads = leads[:batchLimit]
		}
		zap.L().Info("processing batch",
			zap.Int("leads", len(leads)),
			zap.Int("concurrency", cfg.Batch.MaxConcurrent),
		)

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		results, err := analyzeLeads(ctx, env, leads, true, cfg.Batch.MaxConcurrent)
		if err != nil {
			return eris.Wrap(err, "batch analyze")
		}

		return printResults(os.Stdout, results, batchOutput)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "sourcing sheet CSV (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of leads to process (0 = all)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "table", "output format (table, json, csv)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}
