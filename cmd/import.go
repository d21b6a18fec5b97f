package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shelfside/scout-cli/internal/eligibility"
)

var importPrune bool

var importCmd = &cobra.Command{
	Use:   "import [file.json...]",
	Short: "Load eligibility check exports into the cache",
	Long:  "Reads browser extension export files and upserts their eligibility results into the cache. Without arguments, imports every JSON file in the configured export directory.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		files := args
		if len(files) == 0 {
			files, err = filepath.Glob(filepath.Join(cfg.Eligibility.ExportDir, "*.json"))
			if err != nil {
				return eris.Wrap(err, "import: scan export dir")
			}
			if len(files) == 0 {
				return eris.Errorf("import: no export files in %s", cfg.Eligibility.ExportDir)
			}
		}

		maxAge := time.Duration(cfg.Eligibility.MaxAgeHours) * time.Hour
		provider := eligibility.NewProvider(st, maxAge)

		var total int
		for _, file := range files {
			n, err := provider.ImportFile(ctx, file)
			if err != nil {
				return eris.Wrapf(err, "import %s", file)
			}
			zap.L().Info("export imported", zap.String("file", file), zap.Int("records", n))
			total += n
		}
		fmt.Printf("Imported %d eligibility records from %d file(s).\n", total, len(files))

		if importPrune {
			removed, err := st.DeleteExpiredEligibility(ctx, maxAge)
			if err != nil {
				return eris.Wrap(err, "import: prune expired")
			}
			fmt.Printf("Pruned %d expired records.\n", removed)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importPrune, "prune", false, "delete expired cache records after importing")
	rootCmd.AddCommand(importCmd)
}
