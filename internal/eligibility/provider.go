// Package eligibility resolves marketplace gating status for products
// from a cache populated by the seller-console extension's export files.
package eligibility

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shelfside/scout-cli/internal/model"
	"github.com/shelfside/scout-cli/internal/store"
)

// Provider resolves eligibility from the cache. Entries older than maxAge
// count as never checked: a stale answer is worse than no answer.
type Provider struct {
	store  store.Store
	maxAge time.Duration
}

// NewProvider creates a Provider over the given store.
func NewProvider(st store.Store, maxAge time.Duration) *Provider {
	return &Provider{store: st, maxAge: maxAge}
}

// Resolve returns the eligibility status for an ASIN. Missing or expired
// cache entries resolve to not_checked, never to an error.
func (p *Provider) Resolve(ctx context.Context, asin string) (model.EligibilityStatus, error) {
	rec, err := p.store.GetEligibility(ctx, asin)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			return model.EligibilityNotChecked, nil
		}
		return "", eris.Wrapf(err, "eligibility: resolve %s", asin)
	}
	if rec.Stale(p.maxAge) {
		zap.L().Debug("eligibility: cache entry expired",
			zap.String("asin", asin),
			zap.Time("checked_at", rec.CheckedAt),
		)
		return model.EligibilityNotChecked, nil
	}
	return rec.Status, nil
}

// exportEntry is one row of the extension's JSON export. The extension
// writes epoch milliseconds; hand-edited files sometimes carry RFC3339.
type exportEntry struct {
	ASIN      string          `json:"asin"`
	Status    string          `json:"status"`
	Condition string          `json:"condition"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	CheckedAt json.RawMessage `json:"checked_at"`
	Timestamp json.RawMessage `json:"timestamp"` // legacy field name
}

// exportFile covers both export shapes: a bare array and a wrapped object.
type exportFile struct {
	Results []exportEntry `json:"results"`
}

// ImportFile parses an extension export file and upserts every entry into
// the cache. Returns the number of entries imported. Entries with an
// unrecognized status are skipped with a warning rather than aborting the
// whole import.
func (p *Provider) ImportFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "eligibility: read export %s", path)
	}

	var entries []exportEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		var wrapped exportFile
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return 0, eris.Wrapf(err, "eligibility: parse export %s", path)
		}
		entries = wrapped.Results
	}

	imported := 0
	for _, entry := range entries {
		if entry.ASIN == "" {
			continue
		}
		status, err := model.ParseEligibilityStatus(entry.Status)
		if err != nil {
			zap.L().Warn("eligibility: skipping export entry",
				zap.String("asin", entry.ASIN),
				zap.String("status", entry.Status),
			)
			continue
		}

		checkedAt := parseTimestamp(entry.CheckedAt)
		if checkedAt.IsZero() {
			checkedAt = parseTimestamp(entry.Timestamp)
		}
		if checkedAt.IsZero() {
			checkedAt = time.Now().UTC()
		}

		rec := &model.EligibilityRecord{
			ASIN:      entry.ASIN,
			Status:    status,
			Condition: entry.Condition,
			Title:     entry.Title,
			Message:   entry.Message,
			CheckedAt: checkedAt,
		}
		if err := p.store.SetEligibility(ctx, rec); err != nil {
			return imported, eris.Wrapf(err, "eligibility: cache entry %s", entry.ASIN)
		}
		imported++
	}

	zap.L().Info("eligibility: imported export",
		zap.String("path", path),
		zap.Int("imported", imported),
		zap.Int("total", len(entries)),
	)
	return imported, nil
}

// parseTimestamp accepts epoch milliseconds or an RFC3339 string.
func parseTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Time{}
	}

	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil && millis > 0 {
		return time.UnixMilli(millis).UTC()
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
