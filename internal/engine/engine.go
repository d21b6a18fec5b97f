// Package engine classifies product signals into acquire, reject, or
// defer verdicts against configured thresholds. Analysis is pure: no
// I/O, no shared mutable state, safe for concurrent use.
package engine

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/shelfside/scout-cli/internal/config"
	"github.com/shelfside/scout-cli/internal/model"
	"github.com/shelfside/scout-cli/internal/valuation"
)

// Confidence penalty per soft check failure. Hard failures force
// rejection outright and do not touch confidence.
const (
	lowSalesPenalty    = 0.8
	competitionPenalty = 0.9
	decliningPenalty   = 0.85
)

// Engine evaluates product signals. Thresholds and watchlist are
// read-only after construction and may be shared across goroutines.
type Engine struct {
	thresholds config.ThresholdsConfig
	calc       *valuation.Calculator
	watchlist  Watchlist
}

// New creates an Engine. A nil watchlist falls back to the built-in set.
func New(thresholds config.ThresholdsConfig, calc *valuation.Calculator, watchlist Watchlist) *Engine {
	if watchlist == nil {
		watchlist = DefaultWatchlist()
	}
	return &Engine{
		thresholds: thresholds,
		calc:       calc,
		watchlist:  watchlist,
	}
}

// economics holds the outcome of the ROI sub-step. The pointers stay nil
// when either price was missing.
type economics struct {
	roi      *float64
	profit   *float64
	maxBuy   *float64
	lowROI   bool
	computed bool
}

// Analyze runs every criterion check in a fixed order and classifies the
// result. Missing optional fields pass their checks; a malformed
// eligibility status is a caller error, not an unknown.
func (e *Engine) Analyze(signal model.ProductSignal) (*model.DecisionResult, error) {
	if strings.TrimSpace(signal.ASIN) == "" {
		return nil, eris.New("engine: product id is required")
	}
	if !signal.Eligibility.Valid() {
		return nil, eris.Errorf("engine: invalid eligibility status %q for %s", string(signal.Eligibility), signal.ASIN)
	}

	var reasons []model.SkipReason
	confidence := 1.0

	// 1. Eligibility (required field).
	if r := e.checkEligibility(signal); r != nil {
		reasons = append(reasons, *r)
	}

	// 2. Sales rank.
	if signal.Rank != nil && *signal.Rank > e.thresholds.Rank.Max {
		reasons = append(reasons, model.ReasonHighRank)
	}

	// 3. Sales velocity.
	if signal.MonthlySales != nil && *signal.MonthlySales < e.thresholds.Velocity.Min {
		reasons = append(reasons, model.ReasonLowSales)
		confidence *= lowSalesPenalty
	}

	// 4. Competition.
	if signal.SellerCount != nil && *signal.SellerCount > e.thresholds.Competition.MaxSellers {
		reasons = append(reasons, model.ReasonTooMuchCompetition)
		confidence *= competitionPenalty
	}

	// 5. Price trend.
	if signal.Trend == model.TrendDeclining && !e.thresholds.Price.AllowDeclining {
		reasons = append(reasons, model.ReasonPriceDeclining)
		confidence *= decliningPenalty
	}

	// 6. Publisher watchlist.
	if signal.Publisher != "" && e.watchlist.Contains(signal.Publisher) {
		reasons = append(reasons, model.ReasonPublisherWatchlist)
	}

	// 7. Economics. Always attempted when both prices are present so a
	// rejection still carries the numbers for audit.
	econ := e.computeEconomics(signal)
	if econ.lowROI {
		reasons = append(reasons, model.ReasonLowROI)
	}

	verdict := model.Classify(reasons)

	return &model.DecisionResult{
		ASIN:             signal.ASIN,
		Verdict:          verdict,
		SkipReasons:      reasons,
		Reason:           formatReason(verdict, reasons),
		Confidence:       confidence,
		EstimatedROI:     econ.roi,
		EstimatedProfit:  econ.profit,
		MaxBuyPrice:      econ.maxBuy,
		RecommendedPrice: signal.SellPrice,
		DecidedAt:        time.Now().UTC(),
	}, nil
}

func (e *Engine) checkEligibility(signal model.ProductSignal) *model.SkipReason {
	switch signal.Eligibility {
	case model.EligibilityRestricted:
		r := model.ReasonRestricted
		return &r
	case model.EligibilityUnknown, model.EligibilityNotChecked:
		r := model.ReasonUnknownEligibility
		return &r
	case model.EligibilityNeedsApproval:
		if !e.thresholds.Eligibility.AllowNeedsApproval {
			r := model.ReasonApprovalUnlikely
			return &r
		}
	}
	return nil
}

func (e *Engine) computeEconomics(signal model.ProductSignal) economics {
	var econ economics
	if signal.SellPrice == nil || signal.BuyCost == nil {
		return econ
	}

	profit := e.calc.Profit(*signal.SellPrice, *signal.BuyCost, valuation.DefaultWeightOz)
	econ.roi = &profit.ROIPercent
	econ.profit = &profit.GrossProfit
	econ.lowROI = profit.ROIPercent < e.thresholds.ROI.MinimumPercent
	econ.computed = true

	// Max buy price always targets the preferred ROI: a forward-looking
	// recommendation, not a restatement of the minimum gate.
	maxBuy := e.calc.MaxBuyPrice(*signal.SellPrice, e.thresholds.ROI.TargetPercent/100)
	econ.maxBuy = &maxBuy

	return econ
}

func formatReason(verdict model.Verdict, reasons []model.SkipReason) string {
	switch verdict {
	case model.VerdictAcquire:
		return "all criteria passed - recommend purchase"
	case model.VerdictDefer:
		return "monitor for improvement: " + joinReasons(reasons)
	default:
		return "skip: " + joinReasons(reasons)
	}
}

func joinReasons(reasons []model.SkipReason) string {
	texts := make([]string, len(reasons))
	for i, r := range reasons {
		texts[i] = r.Text()
	}
	return strings.Join(texts, ", ")
}
