package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfside/scout-cli/internal/config"
	"github.com/shelfside/scout-cli/internal/eligibility"
	"github.com/shelfside/scout-cli/internal/engine"
	"github.com/shelfside/scout-cli/internal/model"
	"github.com/shelfside/scout-cli/internal/sheet"
	"github.com/shelfside/scout-cli/internal/store"
	"github.com/shelfside/scout-cli/internal/valuation"
)

// stubKeepa serves canned snapshots without touching the network.
type stubKeepa struct {
	snapshots map[string]*model.MarketSnapshot
}

func (s *stubKeepa) Product(_ context.Context, asin string) (*model.MarketSnapshot, error) {
	return s.snapshots[asin], nil
}

func (s *stubKeepa) Products(_ context.Context, asins []string) (map[string]*model.MarketSnapshot, error) {
	out := make(map[string]*model.MarketSnapshot)
	for _, asin := range asins {
		if snap, ok := s.snapshots[asin]; ok {
			out[asin] = snap
		}
	}
	return out, nil
}

func (s *stubKeepa) TokensLeft() int { return 100 }

func testEnv(t *testing.T, snapshots map[string]*model.MarketSnapshot) *analysisEnv {
	t.Helper()

	st, err := store.NewSQLite(t.TempDir() + "/cmd.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	thresholds := config.ThresholdsConfig{
		Rank:        config.RankPolicy{Max: 2_000_000},
		Velocity:    config.VelocityPolicy{Min: 1.0},
		ROI:         config.ROIPolicy{MinimumPercent: 30, TargetPercent: 50},
		Competition: config.CompetitionPolicy{MaxSellers: 10},
	}
	calc := valuation.New(valuation.DefaultFeeSchedule())

	return &analysisEnv{
		Store:       st,
		Keepa:       &stubKeepa{snapshots: snapshots},
		Eligibility: eligibility.NewProvider(st, 24*time.Hour),
		Engine:      engine.New(thresholds, calc, nil),
		Calc:        calc,
	}
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func goodSnapshot(asin string) *model.MarketSnapshot {
	return &model.MarketSnapshot{
		ASIN:          asin,
		Title:         "Test Book",
		Rank:          intp(45_000),
		Price:         floatp(24.99),
		MonthlySales:  floatp(11.0),
		FBAOfferCount: intp(3),
		FetchedAt:     time.Now().UTC(),
	}
}

func TestAnalyzeLeads(t *testing.T) {
	ctx := context.Background()
	env := testEnv(t, map[string]*model.MarketSnapshot{
		"0134190440": goodSnapshot("0134190440"),
	})

	require.NoError(t, env.Store.SetEligibility(ctx, &model.EligibilityRecord{
		ASIN:      "0134190440",
		Status:    model.EligibilityClear,
		CheckedAt: time.Now().UTC(),
	}))

	results, err := analyzeLeads(ctx, env, []sheet.Lead{
		{ASIN: "0134190440", Cost: floatp(8.50), Source: "ebay"},
	}, false, 1)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, model.VerdictAcquire, results[0].Verdict)
	assert.Equal(t, 1.0, results[0].Confidence)
	require.NotNil(t, results[0].EstimatedROI)
	assert.Greater(t, *results[0].EstimatedROI, 30.0)
}

func TestAnalyzeLeads_UncachedEligibilityRejects(t *testing.T) {
	ctx := context.Background()
	env := testEnv(t, map[string]*model.MarketSnapshot{
		"0134190440": goodSnapshot("0134190440"),
	})

	results, err := analyzeLeads(ctx, env, []sheet.Lead{{ASIN: "0134190440"}}, false, 1)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, model.VerdictReject, results[0].Verdict)
	assert.Contains(t, results[0].SkipReasons, model.ReasonUnknownEligibility)
}

func TestAnalyzeLeads_SkipsMissingMarketData(t *testing.T) {
	ctx := context.Background()
	env := testEnv(t, map[string]*model.MarketSnapshot{
		"0134190440": goodSnapshot("0134190440"),
	})

	results, err := analyzeLeads(ctx, env, []sheet.Lead{
		{ASIN: "0134190440"},
		{ASIN: "B000000000"},
	}, false, 2)

	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestAnalyzeLeads_SavePersistsDecisions(t *testing.T) {
	ctx := context.Background()
	env := testEnv(t, map[string]*model.MarketSnapshot{
		"0134190440": goodSnapshot("0134190440"),
	})

	_, err := analyzeLeads(ctx, env, []sheet.Lead{{ASIN: "0134190440"}}, true, 1)
	require.NoError(t, err)

	saved, err := env.Store.ListDecisions(ctx, store.DecisionFilter{ASIN: "0134190440"})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, model.VerdictReject, saved[0].Verdict)
}

func TestSummarize(t *testing.T) {
	results := []model.DecisionResult{
		{Verdict: model.VerdictAcquire, EstimatedROI: floatp(60)},
		{Verdict: model.VerdictAcquire, EstimatedROI: floatp(40)},
		{Verdict: model.VerdictReject},
		{Verdict: model.VerdictDefer},
	}

	s := summarize(results)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Acquire)
	assert.Equal(t, 1, s.Reject)
	assert.Equal(t, 1, s.Defer)
	assert.InDelta(t, 0.5, s.BuyRate, 0.001)
	// Only the two results carrying an ROI count toward the average.
	assert.InDelta(t, 50.0, s.AvgROI, 0.001)
}

func TestWriteDecisionsCSV(t *testing.T) {
	var buf bytes.Buffer
	err := writeDecisionsCSV(&buf, []model.DecisionResult{
		{
			ASIN:         "0134190440",
			Verdict:      model.VerdictAcquire,
			Confidence:   1.0,
			EstimatedROI: floatp(61.5),
			MaxBuyPrice:  floatp(11.83),
			Reason:       "all criteria passed - recommend purchase",
		},
		{
			ASIN:       "0262046305",
			Verdict:    model.VerdictReject,
			Confidence: 0.85,
			Reason:     "skip: price declining",
		},
	})
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Equal(t, "asin,verdict,confidence,roi,profit,max_buy,reason", string(lines[0]))
	assert.Contains(t, string(lines[1]), "0134190440,acquire,1.00,61.50,,11.83")
	assert.Contains(t, string(lines[2]), "0262046305,reject,0.85,,,")
}

func TestPrintResults_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := printResults(&buf, nil, "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestFormatDecisions(t *testing.T) {
	var buf bytes.Buffer
	formatDecisions(&buf, []model.DecisionResult{
		{
			ASIN:         "0134190440",
			Verdict:      model.VerdictAcquire,
			Confidence:   1.0,
			EstimatedROI: floatp(61.5),
			MaxBuyPrice:  floatp(11.83),
			Reason:       "all criteria passed - recommend purchase",
		},
		{
			ASIN:       "0262046305",
			Verdict:    model.VerdictReject,
			Confidence: 0.85,
			Reason:     "skip: price declining",
		},
	})

	out := buf.String()
	assert.Contains(t, out, "0134190440")
	assert.Contains(t, out, "acquire")
	assert.Contains(t, out, "61.5%")
	assert.Contains(t, out, "$11.83")
	// Missing economics render as dashes.
	assert.Contains(t, out, "-")
}

func TestFormatDecisions_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatDecisions(&buf, nil)
	assert.Contains(t, buf.String(), "No decisions.")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly ten", truncate("exactly ten", 11))
	assert.Equal(t, "a much ...", truncate("a much longer string", 10))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "-", formatPct(nil))
	assert.Equal(t, "42.1%", formatPct(floatp(42.11)))
	assert.Equal(t, "-", formatDollars(nil))
	assert.Equal(t, "$8.50", formatDollars(floatp(8.5)))
}
