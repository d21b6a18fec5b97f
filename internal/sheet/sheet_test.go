package sheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSheet(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseCSV(t *testing.T) {
	t.Parallel()

	path := writeSheet(t, `asin,cost,source,condition,title
0134190440,$8.50,ebay,used_good,The Go Programming Language
0262046305,12.00,thriftbooks,,Introduction to Algorithms
`)

	leads, err := ParseCSV(path)
	require.NoError(t, err)
	require.Len(t, leads, 2)

	assert.Equal(t, "0134190440", leads[0].ASIN)
	require.NotNil(t, leads[0].Cost)
	assert.InDelta(t, 8.50, *leads[0].Cost, 0.001)
	assert.Equal(t, "ebay", leads[0].Source)
	assert.Equal(t, "used_good", leads[0].Condition)

	assert.Equal(t, "0262046305", leads[1].ASIN)
	require.NotNil(t, leads[1].Cost)
	assert.InDelta(t, 12.00, *leads[1].Cost, 0.001)
	assert.Empty(t, leads[1].Condition)
}

func TestParseCSV_HeaderCaseAndOrder(t *testing.T) {
	t.Parallel()

	path := writeSheet(t, `Cost,ASIN
4.25,b07f92k1t3
`)

	leads, err := ParseCSV(path)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "B07F92K1T3", leads[0].ASIN)
	require.NotNil(t, leads[0].Cost)
	assert.InDelta(t, 4.25, *leads[0].Cost, 0.001)
}

func TestParseCSV_SkipsBlankAndDuplicateASINs(t *testing.T) {
	t.Parallel()

	path := writeSheet(t, `asin,cost
0134190440,8.50
,3.00
0134190440,9.99
`)

	leads, err := ParseCSV(path)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	require.NotNil(t, leads[0].Cost)
	assert.InDelta(t, 8.50, *leads[0].Cost, 0.001)
}

func TestParseCSV_MissingCostColumn(t *testing.T) {
	t.Parallel()

	path := writeSheet(t, `asin,source
0134190440,estate sale
`)

	leads, err := ParseCSV(path)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Nil(t, leads[0].Cost)
	assert.Equal(t, "estate sale", leads[0].Source)
}

func TestParseCSV_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing asin column", func(t *testing.T) {
		t.Parallel()
		path := writeSheet(t, "title,cost\nSome Book,5.00\n")
		_, err := ParseCSV(path)
		assert.ErrorContains(t, err, `missing required column "asin"`)
	})

	t.Run("bad cost", func(t *testing.T) {
		t.Parallel()
		path := writeSheet(t, "asin,cost\n0134190440,free\n")
		_, err := ParseCSV(path)
		assert.ErrorContains(t, err, "bad cost")
	})

	t.Run("negative cost", func(t *testing.T) {
		t.Parallel()
		path := writeSheet(t, "asin,cost\n0134190440,-2\n")
		_, err := ParseCSV(path)
		assert.ErrorContains(t, err, "negative cost")
	})

	t.Run("no data rows", func(t *testing.T) {
		t.Parallel()
		path := writeSheet(t, "asin,cost\n")
		_, err := ParseCSV(path)
		assert.ErrorContains(t, err, "no data rows")
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := ParseCSV(filepath.Join(t.TempDir(), "nope.csv"))
		assert.ErrorContains(t, err, "open csv")
	})
}
