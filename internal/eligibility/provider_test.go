package eligibility

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfside/scout-cli/internal/model"
	"github.com/shelfside/scout-cli/internal/store"
)

func newTestProvider(t *testing.T) (*Provider, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return NewProvider(st, 24*time.Hour), st
}

func TestResolve(t *testing.T) {
	p, st := newTestProvider(t)
	ctx := context.Background()

	t.Run("missing resolves to not checked", func(t *testing.T) {
		status, err := p.Resolve(ctx, "B404")
		require.NoError(t, err)
		assert.Equal(t, model.EligibilityNotChecked, status)
	})

	t.Run("fresh entry returns its status", func(t *testing.T) {
		require.NoError(t, st.SetEligibility(ctx, &model.EligibilityRecord{
			ASIN:      "B001",
			Status:    model.EligibilityClear,
			CheckedAt: time.Now().UTC().Add(-time.Hour),
		}))
		status, err := p.Resolve(ctx, "B001")
		require.NoError(t, err)
		assert.Equal(t, model.EligibilityClear, status)
	})

	t.Run("expired entry resolves to not checked", func(t *testing.T) {
		require.NoError(t, st.SetEligibility(ctx, &model.EligibilityRecord{
			ASIN:      "B002",
			Status:    model.EligibilityRestricted,
			CheckedAt: time.Now().UTC().Add(-48 * time.Hour),
		}))
		status, err := p.Resolve(ctx, "B002")
		require.NoError(t, err)
		assert.Equal(t, model.EligibilityNotChecked, status)
	})
}

func TestImportFile(t *testing.T) {
	ctx := context.Background()

	writeExport := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "export.json")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("bare array with epoch millis", func(t *testing.T) {
		p, _ := newTestProvider(t)
		path := writeExport(t, `[
			{"asin": "B001", "status": "GOOD", "condition": "Used", "title": "A Book", "checked_at": 1767225600000},
			{"asin": "B002", "status": "RESTRICTED", "checked_at": 1767225600000}
		]`)

		n, err := p.ImportFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		status, err := p.Resolve(ctx, "B002")
		require.NoError(t, err)
		// The export entries are from 2026-01-01 and thus stale.
		assert.Equal(t, model.EligibilityNotChecked, status)
	})

	t.Run("wrapped results with rfc3339 timestamps", func(t *testing.T) {
		p, st := newTestProvider(t)
		recent := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
		path := writeExport(t, `{"results": [
			{"asin": "B003", "status": "need_approval", "timestamp": "`+recent+`"}
		]}`)

		n, err := p.ImportFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		rec, err := st.GetEligibility(ctx, "B003")
		require.NoError(t, err)
		assert.Equal(t, model.EligibilityNeedsApproval, rec.Status)

		status, err := p.Resolve(ctx, "B003")
		require.NoError(t, err)
		assert.Equal(t, model.EligibilityNeedsApproval, status)
	})

	t.Run("unknown status entries are skipped", func(t *testing.T) {
		p, _ := newTestProvider(t)
		path := writeExport(t, `[
			{"asin": "B004", "status": "MAYBE"},
			{"asin": "B005", "status": "GOOD"},
			{"asin": "", "status": "GOOD"}
		]`)

		n, err := p.ImportFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		status, err := p.Resolve(ctx, "B005")
		require.NoError(t, err)
		assert.Equal(t, model.EligibilityClear, status)
	})

	t.Run("missing timestamp defaults to now", func(t *testing.T) {
		p, _ := newTestProvider(t)
		path := writeExport(t, `[{"asin": "B006", "status": "GOOD"}]`)

		n, err := p.ImportFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		status, err := p.Resolve(ctx, "B006")
		require.NoError(t, err)
		assert.Equal(t, model.EligibilityClear, status)
	})

	t.Run("malformed file errors", func(t *testing.T) {
		p, _ := newTestProvider(t)
		path := writeExport(t, `not json`)
		_, err := p.ImportFile(ctx, path)
		assert.Error(t, err)
	})
}
