package model

import "time"

// Item is one purchased unit tracked through the fulfillment pipeline.
type Item struct {
	ID    string `json:"id"`
	ASIN  string `json:"asin"`
	ISBN  string `json:"isbn,omitempty"`
	Title string `json:"title,omitempty"`

	// Source purchase.
	SourceMarketplace string  `json:"source_marketplace,omitempty"`
	SourceOrderID     string  `json:"source_order_id,omitempty"`
	BuyPrice          float64 `json:"buy_price"`
	BuyShipping       float64 `json:"buy_shipping"`
	BuyTax            float64 `json:"buy_tax"`

	// Listing.
	ListPrice float64    `json:"list_price,omitempty"`
	Condition string     `json:"condition,omitempty"`
	ListedAt  *time.Time `json:"listed_at,omitempty"`

	// Sale.
	SaleOrderID string     `json:"sale_order_id,omitempty"`
	SalePrice   float64    `json:"sale_price,omitempty"`
	SoldAt      *time.Time `json:"sold_at,omitempty"`

	// Marketplace fees, populated at sale time.
	ReferralFee    float64 `json:"referral_fee,omitempty"`
	FulfillmentFee float64 `json:"fulfillment_fee,omitempty"`
	OtherFees      float64 `json:"other_fees,omitempty"`

	Status    ItemStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TotalCost is everything paid to acquire the unit.
func (i *Item) TotalCost() float64 {
	return i.BuyPrice + i.BuyShipping + i.BuyTax
}

// TotalFees is the sum of marketplace fees charged on the sale.
func (i *Item) TotalFees() float64 {
	return i.ReferralFee + i.FulfillmentFee + i.OtherFees
}

// Profit is realized profit; meaningful only once the item has sold.
func (i *Item) Profit() float64 {
	return i.SalePrice - i.TotalFees() - i.TotalCost()
}

// ROI is realized return on investment as a percentage. Zero cost yields 0.
func (i *Item) ROI() float64 {
	cost := i.TotalCost()
	if cost <= 0 {
		return 0
	}
	return i.Profit() / cost * 100
}

// NeedsAttention flags stranded items and aging listed inventory.
func (i *Item) NeedsAttention(now time.Time) bool {
	if i.Status == StatusStranded {
		return true
	}
	if i.Status == StatusListed && i.ListedAt != nil && now.Sub(*i.ListedAt) > 60*24*time.Hour {
		return true
	}
	return false
}
