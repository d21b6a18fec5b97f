// Package keepa provides a client for the Keepa product data API. It
// fetches current and 90-day historical market data for an ASIN and
// normalizes it into a MarketSnapshot.
package keepa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/shelfside/scout-cli/internal/estimate"
	"github.com/shelfside/scout-cli/internal/model"
)

// Stats array indices used by the Keepa product endpoint.
const (
	statAmazon    = 0
	statSalesRank = 3
	statNewFBM    = 7
	statNewFBA    = 10
)

// batchSize is the maximum number of ASINs Keepa accepts per request.
const batchSize = 100

// Client defines the Keepa product data operations.
type Client interface {
	// Product fetches market data for a single ASIN. Returns nil when the
	// ASIN is unknown to Keepa.
	Product(ctx context.Context, asin string) (*model.MarketSnapshot, error)
	// Products fetches market data for up to 100 ASINs per request,
	// chunking larger inputs. ASINs Keepa does not know are absent from
	// the result map.
	Products(ctx context.Context, asins []string) (map[string]*model.MarketSnapshot, error)
	// TokensLeft reports the API token balance from the most recent
	// response, or -1 before any request has completed.
	TokensLeft() int
}

// Option configures the Keepa client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithDomain sets the Amazon marketplace domain (1 = US, 2 = UK, 3 = DE).
func WithDomain(domain int) Option {
	return func(c *httpClient) {
		c.domain = domain
	}
}

// WithLimiter replaces the default request pacer.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	apiKey     string
	baseURL    string
	domain     int
	http       *http.Client
	limiter    *rate.Limiter
	tokensLeft int
}

// NewClient creates a Keepa client. The default pacer allows one request
// every 500ms, matching the free tier.
func NewClient(apiKey string, opts ...Option) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("keepa: api key is required")
	}
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.keepa.com",
		domain:  1,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		tokensLeft: -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *httpClient) TokensLeft() int {
	return c.tokensLeft
}

func (c *httpClient) Product(ctx context.Context, asin string) (*model.MarketSnapshot, error) {
	if asin == "" {
		return nil, eris.New("keepa: asin is required")
	}
	snapshots, err := c.fetch(ctx, []string{asin})
	if err != nil {
		return nil, err
	}
	return snapshots[asin], nil
}

func (c *httpClient) Products(ctx context.Context, asins []string) (map[string]*model.MarketSnapshot, error) {
	results := make(map[string]*model.MarketSnapshot, len(asins))
	for start := 0; start < len(asins); start += batchSize {
		end := start + batchSize
		if end > len(asins) {
			end = len(asins)
		}
		batch, err := c.fetch(ctx, asins[start:end])
		if err != nil {
			return nil, err
		}
		for asin, snapshot := range batch {
			results[asin] = snapshot
		}
	}
	return results, nil
}

// productResponse is the envelope of the Keepa product endpoint.
type productResponse struct {
	TokensLeft int           `json:"tokensLeft"`
	Products   []productData `json:"products"`
}

type productData struct {
	ASIN      string       `json:"asin"`
	Title     string       `json:"title"`
	Publisher string       `json:"manufacturer"`
	Stats     productStats `json:"stats"`
	// CSV holds per-metric history as alternating keepa-minute
	// timestamps and values. Metrics without history are null.
	CSV    [][]int64   `json:"csv"`
	Offers []offerData `json:"offers"`
}

type productStats struct {
	Current []int64 `json:"current"`
	Avg90   []int64 `json:"avg90"`
}

type offerData struct {
	IsFBA bool `json:"isFBA"`
}

func (c *httpClient) fetch(ctx context.Context, asins []string) (map[string]*model.MarketSnapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "keepa: rate limit wait")
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("domain", fmt.Sprintf("%d", c.domain))
	params.Set("asin", strings.Join(asins, ","))
	params.Set("stats", "90")
	params.Set("offers", "20")

	reqURL := fmt.Sprintf("%s/product?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "keepa: create request")
	}

	body, statusCode, err := c.retryDo(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "keepa: request failed")
	}
	if statusCode != http.StatusOK {
		return nil, eris.Errorf("keepa: unexpected status %d: %s", statusCode, string(body))
	}

	var result productResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "keepa: unmarshal response")
	}
	c.tokensLeft = result.TokensLeft

	snapshots := make(map[string]*model.MarketSnapshot, len(result.Products))
	for i := range result.Products {
		if snapshot := parseProduct(&result.Products[i]); snapshot != nil {
			snapshots[snapshot.ASIN] = snapshot
		}
	}
	return snapshots, nil
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes an HTTP request with exponential backoff retries on
// transient failures (429, 500, 502, 503).
func (c *httpClient) retryDo(ctx context.Context, req *http.Request) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		retryReq := req.Clone(ctx)

		resp, err := c.http.Do(retryReq)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "keepa: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("keepa: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

// parseProduct converts one Keepa product record into a snapshot. Keepa
// encodes prices in cents and uses -1 for missing values.
func parseProduct(data *productData) *model.MarketSnapshot {
	if data.ASIN == "" {
		return nil
	}

	snapshot := &model.MarketSnapshot{
		ASIN:      data.ASIN,
		Title:     data.Title,
		Publisher: data.Publisher,
		FetchedAt: time.Now().UTC(),
	}

	if rank := statValue(data.Stats.Current, statSalesRank); rank != nil {
		r := int(*rank)
		snapshot.Rank = &r
		snapshot.MonthlySales = estimate.MonthlySales(r)
	}
	if avg := statValue(data.Stats.Avg90, statSalesRank); avg != nil {
		r := int(*avg)
		snapshot.Rank90dAvg = &r
	}

	// Prefer the FBA offer price, then Amazon's own, then FBM.
	for _, idx := range []int{statNewFBA, statAmazon, statNewFBM} {
		if cents := statValue(data.Stats.Current, idx); cents != nil {
			snapshot.Price = centsToDollars(*cents)
			break
		}
	}
	if cents := statValue(data.Stats.Avg90, statAmazon); cents != nil {
		snapshot.Price90dAvg = centsToDollars(*cents)
	}

	if len(data.Offers) > 0 {
		var fba, fbm int
		for _, offer := range data.Offers {
			if offer.IsFBA {
				fba++
			} else {
				fbm++
			}
		}
		snapshot.FBAOfferCount = &fba
		snapshot.FBMOfferCount = &fbm
	}

	if len(data.CSV) > statAmazon {
		snapshot.Trend = estimate.Trend(priceSeries(data.CSV[statAmazon]))
	}

	return snapshot
}

// statValue reads one slot of a Keepa stats array, treating missing
// slots and non-positive values as unknown.
func statValue(stats []int64, index int) *int64 {
	if index >= len(stats) {
		return nil
	}
	if v := stats[index]; v > 0 {
		return &v
	}
	return nil
}

func centsToDollars(cents int64) *float64 {
	d := float64(cents) / 100.0
	return &d
}

// priceSeries extracts the value half of a Keepa history array, which
// alternates timestamps and values, skipping missing entries.
func priceSeries(history []int64) []float64 {
	series := make([]float64, 0, len(history)/2)
	for i := 1; i < len(history); i += 2 {
		if history[i] > 0 {
			series = append(series, float64(history[i])/100.0)
		}
	}
	return series
}
