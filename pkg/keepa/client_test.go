package keepa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/shelfside/scout-cli/internal/model"
)

func newTestClient(t *testing.T, baseURL string) Client {
	t.Helper()

	client, err := NewClient("test-key",
		WithBaseURL(baseURL),
		WithLimiter(rate.NewLimiter(rate.Inf, 1)),
	)
	require.NoError(t, err)
	return client
}

// sampleProduct is a trimmed product record: rank 45000, FBA price
// $24.99, 90-day average $26.50, two FBA offers and one FBM offer, and
// a declining Amazon price history.
func sampleProduct() productData {
	return productData{
		ASIN:      "0134190440",
		Title:     "The Go Programming Language",
		Publisher: "Addison-Wesley",
		Stats: productStats{
			//            amazon    rank        fbm        fba
			Current: []int64{2899, -1, -1, 45000, -1, -1, -1, 2199, -1, -1, 2499},
			Avg90:   []int64{2650, -1, -1, 52000},
		},
		CSV: [][]int64{
			{100, 3000, 200, 2950, 300, 2900, 400, 2850, 500, 2500, 600, 2450, 700, 2400, 800, 2350},
		},
		Offers: []offerData{{IsFBA: true}, {IsFBA: true}, {IsFBA: false}},
	}
}

func TestProduct_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/product", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "1", r.URL.Query().Get("domain"))
		assert.Equal(t, "0134190440", r.URL.Query().Get("asin"))
		assert.Equal(t, "90", r.URL.Query().Get("stats"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(productResponse{
			TokensLeft: 240,
			Products:   []productData{sampleProduct()},
		})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	got, err := client.Product(context.Background(), "0134190440")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "0134190440", got.ASIN)
	assert.Equal(t, "The Go Programming Language", got.Title)
	assert.Equal(t, "Addison-Wesley", got.Publisher)

	require.NotNil(t, got.Rank)
	assert.Equal(t, 45000, *got.Rank)
	require.NotNil(t, got.Rank90dAvg)
	assert.Equal(t, 52000, *got.Rank90dAvg)

	// FBA price wins over the Amazon price.
	require.NotNil(t, got.Price)
	assert.InDelta(t, 24.99, *got.Price, 0.001)
	require.NotNil(t, got.Price90dAvg)
	assert.InDelta(t, 26.50, *got.Price90dAvg, 0.001)

	require.NotNil(t, got.FBAOfferCount)
	assert.Equal(t, 2, *got.FBAOfferCount)
	require.NotNil(t, got.FBMOfferCount)
	assert.Equal(t, 1, *got.FBMOfferCount)

	require.NotNil(t, got.MonthlySales)
	assert.Greater(t, *got.MonthlySales, 0.0)

	assert.Equal(t, model.TrendDeclining, got.Trend)

	assert.Equal(t, 240, client.TokensLeft())
}

func TestProduct_PriceFallback(t *testing.T) {
	t.Parallel()

	product := sampleProduct()
	// No FBA offer price; the Amazon price should be used instead.
	product.Stats.Current[statNewFBA] = -1

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(productResponse{Products: []productData{product}})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	got, err := client.Product(context.Background(), "0134190440")

	require.NoError(t, err)
	require.NotNil(t, got.Price)
	assert.InDelta(t, 28.99, *got.Price, 0.001)
}

func TestProduct_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(productResponse{TokensLeft: 100})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	got, err := client.Product(context.Background(), "B000000000")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestProduct_SparseStats(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(productResponse{
			Products: []productData{{ASIN: "0134190440", Title: "Unranked Book"}},
		})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	got, err := client.Product(context.Background(), "0134190440")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Rank)
	assert.Nil(t, got.Price)
	assert.Nil(t, got.MonthlySales)
	assert.Nil(t, got.FBAOfferCount)
	assert.Equal(t, model.PriceTrend(""), got.Trend)
}

func TestProduct_EmptyASIN(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "http://localhost:1")
	_, err := client.Product(context.Background(), "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "asin is required")
}

func TestProducts_Chunking(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		batch := strings.Split(r.URL.Query().Get("asin"), ",")
		assert.LessOrEqual(t, len(batch), 100)

		products := make([]productData, 0, len(batch))
		for _, asin := range batch {
			p := sampleProduct()
			p.ASIN = asin
			products = append(products, p)
		}
		json.NewEncoder(w).Encode(productResponse{Products: products})
	}))
	defer srv.Close()

	asins := make([]string, 150)
	for i := range asins {
		asins[i] = "B00" + strings.Repeat("0", 5) + string(rune('A'+i%26)) + string(rune('A'+i/26))
	}

	client := newTestClient(t, srv.URL)
	got, err := client.Products(context.Background(), asins)

	require.NoError(t, err)
	assert.Equal(t, int32(2), requests.Load())
	for _, asin := range asins {
		assert.Contains(t, got, asin)
	}
}

func TestProduct_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Product(context.Background(), "0134190440")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestProduct_RetryOnTransientError(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(productResponse{
			TokensLeft: 50,
			Products:   []productData{sampleProduct()},
		})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	got, err := client.Product(context.Background(), "0134190440")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int32(2), requests.Load())
}

func TestProduct_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Product(context.Background(), "0134190440")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestNewClient_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}
