package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/shelfside/scout-cli/internal/valuation"
)

var maxbuyROI float64

var maxbuyCmd = &cobra.Command{
	Use:   "maxbuy <sell-price>",
	Short: "Compute the highest acquisition cost that still hits the target ROI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sellPrice, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return eris.Wrapf(err, "maxbuy: bad sell price %q", args[0])
		}
		if sellPrice <= 0 {
			return eris.New("maxbuy: sell price must be positive")
		}
		if err := cfg.Validate("thresholds"); err != nil {
			return err
		}

		targetROI := cfg.Thresholds.ROI.TargetPercent
		if cmd.Flags().Changed("roi") {
			targetROI = maxbuyROI
		}
		if targetROI <= 0 {
			return eris.New("maxbuy: target roi must be positive")
		}

		if sellPrice < cfg.Thresholds.Price.MinSellPrice {
			fmt.Fprintf(os.Stderr, "warning: sell price $%.2f is below the configured floor of $%.2f\n",
				sellPrice, cfg.Thresholds.Price.MinSellPrice)
		}

		calc := valuation.New(cfg.Fees)
		fees := calc.Fees(sellPrice, valuation.DefaultWeightOz)
		maxBuy := calc.MaxBuyPrice(sellPrice, targetROI/100)

		fmt.Printf("Sell price:    $%.2f\n", sellPrice)
		fmt.Printf("Est. fees:     $%.2f\n", fees.Total)
		fmt.Printf("Target ROI:    %.0f%%\n", targetROI)
		fmt.Printf("Max buy price: $%.2f\n", maxBuy)
		return nil
	},
}

func init() {
	maxbuyCmd.Flags().Float64Var(&maxbuyROI, "roi", 0, "target ROI percent (default from config)")
	rootCmd.AddCommand(maxbuyCmd)
}
