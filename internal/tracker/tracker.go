// Package tracker records the real-world fulfillment lifecycle of
// purchased items: ordered through listed, sold, and complete, with an
// append-only status history. It consumes acquire decisions as external
// events and never feeds back into the decision engine.
package tracker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shelfside/scout-cli/internal/model"
	"github.com/shelfside/scout-cli/internal/store"
	"github.com/shelfside/scout-cli/internal/valuation"
)

// Tracker manages tracked inventory on top of a Store.
type Tracker struct {
	store store.Store
	calc  *valuation.Calculator
}

// New creates a Tracker. The calculator is used to estimate marketplace
// fees when a sale is recorded.
func New(st store.Store, calc *valuation.Calculator) *Tracker {
	return &Tracker{store: st, calc: calc}
}

// AddParams describes a newly purchased unit.
type AddParams struct {
	ASIN              string
	ISBN              string
	Title             string
	SourceMarketplace string
	SourceOrderID     string
	BuyPrice          float64
	BuyShipping       float64
	BuyTax            float64
	Condition         string
}

// Add records a new item in the ordered state.
func (t *Tracker) Add(ctx context.Context, params AddParams) (*model.Item, error) {
	if params.ASIN == "" {
		return nil, eris.New("tracker: asin is required")
	}
	if params.BuyPrice < 0 || params.BuyShipping < 0 || params.BuyTax < 0 {
		return nil, eris.New("tracker: purchase amounts must be >= 0")
	}

	now := time.Now().UTC()
	item := &model.Item{
		ID:                uuid.New().String(),
		ASIN:              params.ASIN,
		ISBN:              params.ISBN,
		Title:             params.Title,
		SourceMarketplace: params.SourceMarketplace,
		SourceOrderID:     params.SourceOrderID,
		BuyPrice:          params.BuyPrice,
		BuyShipping:       params.BuyShipping,
		BuyTax:            params.BuyTax,
		Condition:         params.Condition,
		Status:            model.StatusOrdered,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := t.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	if err := t.appendEvent(ctx, item.ID, model.StatusOrdered, "manual", ""); err != nil {
		return nil, err
	}

	zap.L().Info("tracker: item added",
		zap.String("item_id", item.ID),
		zap.String("asin", item.ASIN),
	)
	return item, nil
}

// Transition moves an item to a new status, enforcing the transition
// table, and appends a history event.
func (t *Tracker) Transition(ctx context.Context, itemID string, to model.ItemStatus, source, notes string) (*model.Item, error) {
	item, err := t.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if !model.CanTransition(item.Status, to) {
		return nil, eris.Errorf("tracker: invalid transition %s -> %s for item %s",
			item.Status, to, itemID)
	}

	item.Status = to
	switch to {
	case model.StatusListed:
		now := time.Now().UTC()
		item.ListedAt = &now
	}

	if err := t.store.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	if err := t.appendEvent(ctx, itemID, to, source, notes); err != nil {
		return nil, err
	}

	zap.L().Info("tracker: status changed",
		zap.String("item_id", itemID),
		zap.String("status", string(to)),
	)
	return item, nil
}

// RecordSale marks an item sold and fills in the sale price, order id,
// and estimated marketplace fees.
func (t *Tracker) RecordSale(ctx context.Context, itemID, saleOrderID string, salePrice float64) (*model.Item, error) {
	if salePrice < 0 {
		return nil, eris.New("tracker: sale price must be >= 0")
	}

	item, err := t.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(item.Status, model.StatusSold) {
		return nil, eris.Errorf("tracker: invalid transition %s -> %s for item %s",
			item.Status, model.StatusSold, itemID)
	}

	now := time.Now().UTC()
	fees := t.calc.Fees(salePrice, valuation.DefaultWeightOz)

	item.Status = model.StatusSold
	item.SaleOrderID = saleOrderID
	item.SalePrice = salePrice
	item.SoldAt = &now
	item.ReferralFee = fees.Referral
	item.FulfillmentFee = fees.Fulfillment
	item.OtherFees = fees.Inbound

	if err := t.store.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	if err := t.appendEvent(ctx, itemID, model.StatusSold, "manual", saleOrderID); err != nil {
		return nil, err
	}

	zap.L().Info("tracker: sale recorded",
		zap.String("item_id", itemID),
		zap.Float64("sale_price", salePrice),
		zap.Float64("profit", item.Profit()),
	)
	return item, nil
}

// History returns the item's full status history, oldest first.
func (t *Tracker) History(ctx context.Context, itemID string) ([]model.StatusEvent, error) {
	return t.store.ListStatusEvents(ctx, itemID)
}

// Dashboard summarizes the current pipeline.
type Dashboard struct {
	Total          int                      `json:"total"`
	ByStatus       map[model.ItemStatus]int `json:"by_status"`
	Active         int                      `json:"active"`
	Sellable       int                      `json:"sellable"`
	NeedsAttention []model.Item             `json:"needs_attention,omitempty"`
}

// Dashboard computes pipeline counts over all items.
func (t *Tracker) Dashboard(ctx context.Context) (*Dashboard, error) {
	items, err := t.store.ListItems(ctx, store.ItemFilter{Limit: 10_000})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	d := &Dashboard{ByStatus: make(map[model.ItemStatus]int)}
	for _, item := range items {
		d.Total++
		d.ByStatus[item.Status]++
		if item.Status.Active() {
			d.Active++
		}
		if item.Status.Sellable() {
			d.Sellable++
		}
		if item.NeedsAttention(now) {
			d.NeedsAttention = append(d.NeedsAttention, item)
		}
	}
	return d, nil
}

// PnLReport aggregates realized economics over sold and completed items.
type PnLReport struct {
	ItemsSold   int     `json:"items_sold"`
	Revenue     float64 `json:"revenue"`
	TotalCost   float64 `json:"total_cost"`
	TotalFees   float64 `json:"total_fees"`
	GrossProfit float64 `json:"gross_profit"`
	AvgROI      float64 `json:"avg_roi"`
}

// PnL computes the realized profit-and-loss summary.
func (t *Tracker) PnL(ctx context.Context) (*PnLReport, error) {
	items, err := t.store.ListItems(ctx, store.ItemFilter{Limit: 10_000})
	if err != nil {
		return nil, err
	}

	var report PnLReport
	var roiSum float64
	for _, item := range items {
		if item.Status != model.StatusSold && item.Status != model.StatusComplete {
			continue
		}
		report.ItemsSold++
		report.Revenue += item.SalePrice
		report.TotalCost += item.TotalCost()
		report.TotalFees += item.TotalFees()
		report.GrossProfit += item.Profit()
		roiSum += item.ROI()
	}
	if report.ItemsSold > 0 {
		report.AvgROI = roiSum / float64(report.ItemsSold)
	}
	return &report, nil
}

func (t *Tracker) appendEvent(ctx context.Context, itemID string, status model.ItemStatus, source, notes string) error {
	return t.store.AppendStatusEvent(ctx, &model.StatusEvent{
		ItemID: itemID,
		Status: status,
		Source: source,
		Notes:  notes,
		At:     time.Now().UTC(),
	})
}
