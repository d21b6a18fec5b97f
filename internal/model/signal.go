package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// EligibilityStatus is the marketplace gating status for a listing.
type EligibilityStatus string

const (
	EligibilityClear         EligibilityStatus = "clear"
	EligibilityNeedsApproval EligibilityStatus = "needs_approval"
	EligibilityRestricted    EligibilityStatus = "restricted"
	EligibilityUnknown       EligibilityStatus = "unknown"
	EligibilityNotChecked    EligibilityStatus = "not_checked"
)

// Valid reports whether s is one of the closed set of statuses.
func (s EligibilityStatus) Valid() bool {
	switch s {
	case EligibilityClear, EligibilityNeedsApproval, EligibilityRestricted,
		EligibilityUnknown, EligibilityNotChecked:
		return true
	}
	return false
}

// ParseEligibilityStatus parses a status string. The extension export and
// older cache rows use upper-cased spellings, so parsing is case-insensitive
// and accepts the legacy aliases. Anything outside the closed set is an error.
func ParseEligibilityStatus(s string) (EligibilityStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clear", "good":
		return EligibilityClear, nil
	case "needs_approval", "need_approval":
		return EligibilityNeedsApproval, nil
	case "restricted":
		return EligibilityRestricted, nil
	case "unknown":
		return EligibilityUnknown, nil
	case "not_checked":
		return EligibilityNotChecked, nil
	}
	return "", eris.Errorf("model: unrecognized eligibility status %q", s)
}

// PriceTrend describes the direction of a price series. The empty string
// means the trend could not be determined.
type PriceTrend string

const (
	TrendRising    PriceTrend = "rising"
	TrendStable    PriceTrend = "stable"
	TrendDeclining PriceTrend = "declining"
)

// ParsePriceTrend parses a trend string; empty input is allowed and maps to
// the unset value.
func ParsePriceTrend(s string) (PriceTrend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "rising":
		return TrendRising, nil
	case "stable":
		return TrendStable, nil
	case "declining":
		return TrendDeclining, nil
	}
	return "", eris.Errorf("model: unrecognized price trend %q", s)
}

// ProductSignal is the normalized input to the decision engine, assembled
// from the eligibility cache, market data, and the sourcing sheet. Optional
// fields are pointers: nil means the value is unknown, which is never the
// same as zero.
type ProductSignal struct {
	ASIN        string            `json:"asin"`
	Eligibility EligibilityStatus `json:"eligibility"`

	Rank         *int       `json:"rank,omitempty"`
	Rank90dAvg   *int       `json:"rank_90d_avg,omitempty"`
	MonthlySales *float64   `json:"monthly_sales,omitempty"`
	SellPrice    *float64   `json:"sell_price,omitempty"`
	Price90dAvg  *float64   `json:"price_90d_avg,omitempty"`
	Trend        PriceTrend `json:"trend,omitempty"`
	SellerCount  *int       `json:"seller_count,omitempty"`

	BuyCost    *float64 `json:"buy_cost,omitempty"`
	SourceName string   `json:"source_name,omitempty"`

	Title     string `json:"title,omitempty"`
	Publisher string `json:"publisher,omitempty"`
}

// MarketSnapshot is one product's market data as returned by the market
// data client. Every field except the ASIN is optional.
type MarketSnapshot struct {
	ASIN  string `json:"asin"`
	Title string `json:"title,omitempty"`

	Rank       *int     `json:"rank,omitempty"`
	Rank90dAvg *int     `json:"rank_90d_avg,omitempty"`
	Price      *float64 `json:"price,omitempty"`

	Price90dAvg   *float64   `json:"price_90d_avg,omitempty"`
	FBAOfferCount *int       `json:"fba_offer_count,omitempty"`
	FBMOfferCount *int       `json:"fbm_offer_count,omitempty"`
	MonthlySales  *float64   `json:"monthly_sales,omitempty"`
	Trend         PriceTrend `json:"trend,omitempty"`

	Publisher string    `json:"publisher,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Signal merges a snapshot with eligibility and sourcing data into a
// ProductSignal ready for analysis.
func (m *MarketSnapshot) Signal(status EligibilityStatus, buyCost *float64, sourceName string) ProductSignal {
	return ProductSignal{
		ASIN:         m.ASIN,
		Eligibility:  status,
		Rank:         m.Rank,
		Rank90dAvg:   m.Rank90dAvg,
		MonthlySales: m.MonthlySales,
		SellPrice:    m.Price,
		Price90dAvg:  m.Price90dAvg,
		Trend:        m.Trend,
		SellerCount:  m.FBAOfferCount,
		BuyCost:      buyCost,
		SourceName:   sourceName,
		Title:        m.Title,
		Publisher:    m.Publisher,
	}
}

// EligibilityRecord is a cached eligibility check for one ASIN.
type EligibilityRecord struct {
	ASIN      string            `json:"asin"`
	Status    EligibilityStatus `json:"status"`
	Condition string            `json:"condition,omitempty"`
	Title     string            `json:"title,omitempty"`
	Message   string            `json:"message,omitempty"`
	CheckedAt time.Time         `json:"checked_at"`
}

// Stale reports whether the record is older than maxAge.
func (r *EligibilityRecord) Stale(maxAge time.Duration) bool {
	return time.Since(r.CheckedAt) > maxAge
}
