package model

import "time"

// Verdict is the outcome of a product analysis.
type Verdict string

const (
	VerdictAcquire Verdict = "acquire"
	VerdictReject  Verdict = "reject"
	VerdictDefer   Verdict = "defer"
)

// SkipReason identifies a failed criterion check. The set is closed; new
// reasons require a classification entry below.
type SkipReason string

const (
	ReasonRestricted         SkipReason = "restricted"
	ReasonUnknownEligibility SkipReason = "unknown_eligibility"
	ReasonApprovalUnlikely   SkipReason = "approval_unlikely"
	ReasonHighRank           SkipReason = "high_rank"
	ReasonLowSales           SkipReason = "low_sales"
	ReasonTooMuchCompetition SkipReason = "too_much_competition"
	ReasonPriceDeclining     SkipReason = "price_declining"
	ReasonPublisherWatchlist SkipReason = "publisher_watchlist"
	ReasonLowROI             SkipReason = "low_roi"
)

// reasonInfo is the static classification for a skip reason. Hard reasons
// force rejection regardless of anything else. Deferrable reasons describe
// conditions that change over time and, in isolation, downgrade a rejection
// to a defer-for-monitoring verdict.
type reasonInfo struct {
	text       string
	hard       bool
	deferrable bool
}

var reasonTable = map[SkipReason]reasonInfo{
	ReasonRestricted:         {text: "product is restricted", hard: true},
	ReasonUnknownEligibility: {text: "could not determine eligibility", hard: true},
	ReasonApprovalUnlikely:   {text: "approval unlikely to succeed"},
	ReasonHighRank:           {text: "sales rank too high"},
	ReasonLowSales:           {text: "insufficient sales velocity", deferrable: true},
	ReasonTooMuchCompetition: {text: "too many competing sellers"},
	ReasonPriceDeclining:     {text: "price trend declining", deferrable: true},
	ReasonPublisherWatchlist: {text: "publisher on watchlist", hard: true},
	ReasonLowROI:             {text: "ROI below threshold"},
}

// Text returns the human-readable description of the reason.
func (r SkipReason) Text() string {
	return reasonTable[r].text
}

// Hard reports whether the reason unconditionally forces rejection.
func (r SkipReason) Hard() bool {
	return reasonTable[r].hard
}

// Deferrable reports whether the reason, as the only failure, yields a
// defer verdict instead of a rejection.
func (r SkipReason) Deferrable() bool {
	return reasonTable[r].deferrable
}

// Classify maps an ordered failure list to a verdict. Rank, competition,
// and ROI failures are structural and reject even in isolation; only a
// single time-varying failure defers. Two or more soft failures reject.
func Classify(reasons []SkipReason) Verdict {
	if len(reasons) == 0 {
		return VerdictAcquire
	}
	for _, r := range reasons {
		if r.Hard() {
			return VerdictReject
		}
	}
	if len(reasons) == 1 && reasons[0].Deferrable() {
		return VerdictDefer
	}
	return VerdictReject
}

// DecisionResult is the outcome of one engine analysis. The economics
// fields are nil when sell price or buy cost were unavailable.
type DecisionResult struct {
	ASIN        string       `json:"asin"`
	Verdict     Verdict      `json:"verdict"`
	SkipReasons []SkipReason `json:"skip_reasons,omitempty"`
	Reason      string       `json:"reason"`
	Confidence  float64      `json:"confidence"`

	EstimatedROI     *float64 `json:"estimated_roi,omitempty"`
	EstimatedProfit  *float64 `json:"estimated_profit,omitempty"`
	MaxBuyPrice      *float64 `json:"max_buy_price,omitempty"`
	RecommendedPrice *float64 `json:"recommended_price,omitempty"`

	DecidedAt time.Time `json:"decided_at"`
}
