// Package valuation computes marketplace fees, profit, ROI, and the
// maximum justified purchase price for a unit. All functions are pure;
// rounding to output precision happens only at the boundary.
package valuation

import "math"

// FeeSchedule holds marketplace fee rates for media items.
type FeeSchedule struct {
	ReferralRate       float64 `yaml:"referral_rate" mapstructure:"referral_rate"`
	MinReferralFee     float64 `yaml:"min_referral_fee" mapstructure:"min_referral_fee"`
	SmallStandardFee   float64 `yaml:"small_standard_fee" mapstructure:"small_standard_fee"`     // up to 16 oz
	LargeStandardFee   float64 `yaml:"large_standard_fee" mapstructure:"large_standard_fee"`     // 16-32 oz
	LargeStandard2Fee  float64 `yaml:"large_standard_2_fee" mapstructure:"large_standard_2_fee"` // over 32 oz
	InboundPlacementFee float64 `yaml:"inbound_placement_fee" mapstructure:"inbound_placement_fee"`
}

// DefaultFeeSchedule returns the current media fee rates.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		ReferralRate:        0.15,
		MinReferralFee:      0.30,
		SmallStandardFee:    3.22,
		LargeStandardFee:    4.95,
		LargeStandard2Fee:   5.95,
		InboundPlacementFee: 0.27,
	}
}

// DefaultWeightOz is assumed when the unit weight is unknown. Most trade
// paperbacks land in the small standard tier.
const DefaultWeightOz = 12.0

// Fees is an itemized fee breakdown for one sale, rounded to cents.
type Fees struct {
	Referral    float64 `json:"referral"`
	Fulfillment float64 `json:"fulfillment"`
	Inbound     float64 `json:"inbound"`
	Total       float64 `json:"total"`
}

// Profit is the economic outcome of selling one unit.
type Profit struct {
	SellPrice   float64 `json:"sell_price"`
	BuyPrice    float64 `json:"buy_price"`
	Fees        Fees    `json:"fees"`
	GrossProfit float64 `json:"gross_profit"`
	ROIPercent  float64 `json:"roi_percent"`
}

// Calculator derives fees and profitability from a fee schedule. The zero
// value is not usable; construct with New.
type Calculator struct {
	schedule FeeSchedule
}

// New creates a Calculator with the given fee schedule.
func New(schedule FeeSchedule) *Calculator {
	return &Calculator{schedule: schedule}
}

// Fees computes the itemized fees for selling at sellPrice with the given
// unit weight in ounces.
func (c *Calculator) Fees(sellPrice, weightOz float64) Fees {
	referral := sellPrice * c.schedule.ReferralRate
	if referral < c.schedule.MinReferralFee {
		referral = c.schedule.MinReferralFee
	}

	var fulfillment float64
	switch {
	case weightOz <= 16:
		fulfillment = c.schedule.SmallStandardFee
	case weightOz <= 32:
		fulfillment = c.schedule.LargeStandardFee
	default:
		fulfillment = c.schedule.LargeStandard2Fee
	}

	inbound := c.schedule.InboundPlacementFee

	return Fees{
		Referral:    round2(referral),
		Fulfillment: round2(fulfillment),
		Inbound:     round2(inbound),
		Total:       round2(referral + fulfillment + inbound),
	}
}

// Profit computes gross profit and ROI for buying at buyPrice and selling
// at sellPrice. ROI is defined as 0 when buyPrice is 0.
func (c *Calculator) Profit(sellPrice, buyPrice, weightOz float64) Profit {
	fees := c.Fees(sellPrice, weightOz)
	gross := sellPrice - fees.Total - buyPrice

	roi := 0.0
	if buyPrice > 0 {
		roi = gross / buyPrice * 100
	}

	return Profit{
		SellPrice:   sellPrice,
		BuyPrice:    buyPrice,
		Fees:        fees,
		GrossProfit: round2(gross),
		ROIPercent:  round1(roi),
	}
}

// MaxBuyPrice solves for the highest purchase price that still achieves
// targetROI (a fraction, e.g. 0.5 for 50%) when selling at sellPrice.
// Fees are taken at sellPrice once; the tiers are coarse enough that an
// iterative re-solve buys nothing.
func (c *Calculator) MaxBuyPrice(sellPrice, targetROI float64) float64 {
	fees := c.Fees(sellPrice, DefaultWeightOz)
	return round2((sellPrice - fees.Total) / (1 + targetROI))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
