// Package estimate provides market-data derivation heuristics: converting
// a sales rank into an estimated monthly sales figure and classifying a
// price series into a trend. These are ingestion helpers, not decision
// logic.
package estimate

import "github.com/shelfside/scout-cli/internal/model"

// MonthlySales estimates units sold per month in the books category from
// a best-seller rank. Piecewise-linear approximation fitted to published
// category data; anything deep in the tail sells well under one unit a
// month. Returns nil for a non-positive rank.
func MonthlySales(rank int) *float64 {
	if rank <= 0 {
		return nil
	}

	r := float64(rank)
	var est float64
	switch {
	case rank <= 1_000:
		est = 300 + (1_000-r)*0.5
	case rank <= 10_000:
		est = 30 + (10_000-r)/300
	case rank <= 50_000:
		est = 10 + (50_000-r)/4_000
	case rank <= 100_000:
		est = 5 + (100_000-r)/10_000
	case rank <= 200_000:
		est = 3 + (200_000-r)/50_000
	case rank <= 500_000:
		est = 1 + (500_000-r)/150_000
	case rank <= 1_000_000:
		est = 0.5 + (1_000_000-r)/1_000_000
	default:
		est = 0.3
	}
	return &est
}

// trendBand is the relative change below which a series counts as stable.
const trendBand = 0.05

// Trend classifies a chronological price series by comparing the mean of
// its recent half against the mean of its older half. Series shorter than
// four points carry too little signal and return the unset trend.
func Trend(series []float64) model.PriceTrend {
	if len(series) < 4 {
		return ""
	}

	mid := len(series) / 2
	older := mean(series[:mid])
	recent := mean(series[mid:])
	if older <= 0 {
		return ""
	}

	change := (recent - older) / older
	switch {
	case change > trendBand:
		return model.TrendRising
	case change < -trendBand:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
