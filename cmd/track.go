package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/shelfside/scout-cli/internal/model"
	"github.com/shelfside/scout-cli/internal/store"
	"github.com/shelfside/scout-cli/internal/tracker"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Track purchased inventory through the fulfillment pipeline",
}

// -- track add --

var trackAddCmd = &cobra.Command{
	Use:   "add <asin>",
	Short: "Record a newly purchased item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tr, st, err := initTracker(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cost, _ := cmd.Flags().GetFloat64("cost")
		shipping, _ := cmd.Flags().GetFloat64("shipping")
		tax, _ := cmd.Flags().GetFloat64("tax")
		title, _ := cmd.Flags().GetString("title")
		source, _ := cmd.Flags().GetString("source")
		orderID, _ := cmd.Flags().GetString("order-id")
		condition, _ := cmd.Flags().GetString("condition")

		item, err := tr.Add(ctx, tracker.AddParams{
			ASIN:              args[0],
			Title:             title,
			SourceMarketplace: source,
			SourceOrderID:     orderID,
			BuyPrice:          cost,
			BuyShipping:       shipping,
			BuyTax:            tax,
			Condition:         condition,
		})
		if err != nil {
			return eris.Wrap(err, "track add")
		}

		fmt.Printf("Added %s (%s) at $%.2f total cost.\n", item.ID, item.ASIN, item.TotalCost())
		return nil
	},
}

// -- track status --

var trackStatusCmd = &cobra.Command{
	Use:   "status <item-id> <new-status>",
	Short: "Move an item to a new lifecycle status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tr, st, err := initTracker(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, err := model.ParseItemStatus(args[1])
		if err != nil {
			return err
		}

		notes, _ := cmd.Flags().GetString("notes")
		item, err := tr.Transition(ctx, args[0], status, "manual", notes)
		if err != nil {
			return eris.Wrap(err, "track status")
		}

		fmt.Printf("%s is now %s.\n", item.ID, item.Status)
		return nil
	},
}

// -- track sold --

var trackSoldCmd = &cobra.Command{
	Use:   "sold <item-id> <sale-price>",
	Short: "Record a sale with estimated marketplace fees",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tr, st, err := initTracker(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var salePrice float64
		if _, err := fmt.Sscanf(args[1], "%f", &salePrice); err != nil {
			return eris.Wrapf(err, "track sold: bad sale price %q", args[1])
		}

		orderID, _ := cmd.Flags().GetString("order-id")
		item, err := tr.RecordSale(ctx, args[0], orderID, salePrice)
		if err != nil {
			return eris.Wrap(err, "track sold")
		}

		fmt.Printf("Sold %s for $%.2f, profit $%.2f (ROI %.1f%%).\n",
			item.ASIN, item.SalePrice, item.Profit(), item.ROI())
		return nil
	},
}

// -- track list --

var trackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked items",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		_, st, err := initTracker(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		asin, _ := cmd.Flags().GetString("asin")
		limit, _ := cmd.Flags().GetInt("limit")

		items, err := st.ListItems(ctx, store.ItemFilter{
			Status: model.ItemStatus(status),
			ASIN:   asin,
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "track list")
		}

		if len(items) == 0 {
			fmt.Fprintln(os.Stderr, "No items found.")
			return nil
		}

		formatItems(os.Stdout, items)
		return nil
	},
}

// -- track history --

var trackHistoryCmd = &cobra.Command{
	Use:   "history <item-id>",
	Short: "Show an item's status history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tr, st, err := initTracker(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		events, err := tr.History(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "track history")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "AT\tSTATUS\tSOURCE\tNOTES")
		for _, e := range events {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				e.At.Format(time.RFC3339), e.Status, e.Source, e.Notes)
		}
		return w.Flush()
	},
}

// -- track dashboard --

var trackDashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show pipeline counts and items needing attention",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		tr, st, err := initTracker(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		d, err := tr.Dashboard(ctx)
		if err != nil {
			return eris.Wrap(err, "track dashboard")
		}

		fmt.Printf("Items: %d total, %d active, %d sellable\n\n", d.Total, d.Active, d.Sellable)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, status := range model.AllItemStatuses() {
			if n := d.ByStatus[status]; n > 0 {
				_, _ = fmt.Fprintf(w, "%s\t%d\n", status, n)
			}
		}
		_ = w.Flush()

		if len(d.NeedsAttention) > 0 {
			fmt.Printf("\n%d item(s) need attention:\n", len(d.NeedsAttention))
			formatItems(os.Stdout, d.NeedsAttention)
		}
		return nil
	},
}

// -- track pnl --

var trackPnLCmd = &cobra.Command{
	Use:   "pnl",
	Short: "Show realized profit and loss",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		tr, st, err := initTracker(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		report, err := tr.PnL(ctx)
		if err != nil {
			return eris.Wrap(err, "track pnl")
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		fmt.Printf("Items sold:   %d\n", report.ItemsSold)
		fmt.Printf("Revenue:      $%.2f\n", report.Revenue)
		fmt.Printf("Cost:         $%.2f\n", report.TotalCost)
		fmt.Printf("Fees:         $%.2f\n", report.TotalFees)
		fmt.Printf("Gross profit: $%.2f\n", report.GrossProfit)
		fmt.Printf("Average ROI:  %.1f%%\n", report.AvgROI)
		return nil
	},
}

func init() {
	trackAddCmd.Flags().Float64("cost", 0, "purchase price")
	trackAddCmd.Flags().Float64("shipping", 0, "inbound shipping cost")
	trackAddCmd.Flags().Float64("tax", 0, "sales tax paid")
	trackAddCmd.Flags().String("title", "", "book title")
	trackAddCmd.Flags().String("source", "", "source marketplace")
	trackAddCmd.Flags().String("order-id", "", "source order id")
	trackAddCmd.Flags().String("condition", "", "condition (new, used_good, ...)")

	trackStatusCmd.Flags().String("notes", "", "free-form note on the transition")
	trackSoldCmd.Flags().String("order-id", "", "marketplace order id")

	trackListCmd.Flags().String("status", "", "filter by status")
	trackListCmd.Flags().String("asin", "", "filter by ASIN")
	trackListCmd.Flags().Int("limit", 50, "max number of items to display")

	trackPnLCmd.Flags().Bool("json", false, "emit the report as JSON")

	trackCmd.AddCommand(trackAddCmd)
	trackCmd.AddCommand(trackStatusCmd)
	trackCmd.AddCommand(trackSoldCmd)
	trackCmd.AddCommand(trackListCmd)
	trackCmd.AddCommand(trackHistoryCmd)
	trackCmd.AddCommand(trackDashboardCmd)
	trackCmd.AddCommand(trackPnLCmd)
	rootCmd.AddCommand(trackCmd)
}

// formatItems writes a tabular list of items to out.
func formatItems(out io.Writer, items []model.Item) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tASIN\tSTATUS\tCOST\tSALE\tTITLE")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t----\t----\t-----")

	for _, item := range items {
		sale := "-"
		if item.SalePrice > 0 {
			sale = fmt.Sprintf("$%.2f", item.SalePrice)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t$%.2f\t%s\t%s\n",
			shortID(item.ID),
			item.ASIN,
			item.Status,
			item.TotalCost(),
			sale,
			truncate(item.Title, 40),
		)
	}
	_ = w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
