// Package feed talks to the external draw result feed.
package feed

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/matka-platform/result-engine/internal/app/metrics"
	"github.com/matka-platform/result-engine/pkg/logger"
)

// Client fetches draw results from the external feed. The upstream is
// rate limited and authenticated with a signed-request scheme.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
	secret     string
	limiter    *rate.Limiter
	log        *logger.Logger
}

// NewClient builds a feed client. ratePerMinute bounds outbound requests;
// zero or negative disables the limiter.
func NewClient(httpClient *http.Client, url, apiKey, secret string, ratePerMinute int, log *logger.Logger) (*Client, error) {
	if url == "" {
		return nil, errors.New("feed url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("feed")
	}

	var limiter *rate.Limiter
	if ratePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), 1)
	}

	return &Client{
		httpClient: httpClient,
		url:        url,
		apiKey:     apiKey,
		secret:     secret,
		limiter:    limiter,
		log:        log,
	}, nil
}

// FetchResults pulls the current result list from the feed. Any upstream
// failure returns an error and no partial data; the caller waits for the
// next tick.
func (c *Client) FetchResults(ctx context.Context) ([]Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	c.sign(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordFeedFetch("error")
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordFeedFetch("non_200")
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.RecordFeedFetch("error")
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	results := decodeResults(body)
	metrics.RecordFeedFetch("ok")
	return results, nil
}

// sign attaches the feed's signed-request headers: the API key, a unix
// timestamp, and an HMAC-SHA256 signature over key+method+timestamp.
func (c *Client) sign(req *http.Request) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(c.apiKey + req.Method + timestamp))

	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", hex.EncodeToString(mac.Sum(nil)))
}

// decodeResults reads the feed payload leniently: entries may live under a
// top-level "results" key or be the document root array.
func decodeResults(body []byte) []Result {
	doc := gjson.GetBytes(body, "results")
	if !doc.Exists() {
		doc = gjson.ParseBytes(body)
	}

	var out []Result
	doc.ForEach(func(_, entry gjson.Result) bool {
		out = append(out, Result{
			MarketName:  entry.Get("market_name").String(),
			Result:      entry.Get("result").String(),
			UpdatedDate: entry.Get("updated_date").String(),
		})
		return true
	})
	return out
}
