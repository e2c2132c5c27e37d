package brave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/pkg/search"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "https://api.search.brave.com/res/v1/web/search"
	DefaultSiteFilter = "lex.uz"
)

var ErrMissingAPIKey = errors.New("brave search api key is not configured")

type BraveProvider struct {
	BaseURL    string
	APIKey     string
	SiteFilter string
	MaxResults int
	Client     *http.Client

	limiter *rate.Limiter
}

// Ensure BraveProvider implements search.Provider.
var _ search.Provider = &BraveProvider{}

// NewBraveProvider creates a Brave Web Search client restricted to lex.uz.
// ratePerSecond <= 0 disables client-side rate limiting.
func NewBraveProvider(apiKey string, maxResults int, ratePerSecond float64) *BraveProvider {
	p := &BraveProvider{
		BaseURL:    DefaultBaseURL,
		APIKey:     apiKey,
		SiteFilter: DefaultSiteFilter,
		MaxResults: maxResults,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	if ratePerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return p
}

// --- Response structs (Internal to this package) ---

type braveResponse struct {
	Web struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
}

type braveResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// --- Interface Implementation ---

func (b *BraveProvider) Search(ctx context.Context, query string) ([]search.Document, error) {
	if b.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	site := b.SiteFilter
	if site == "" {
		site = DefaultSiteFilter
	}
	params := url.Values{}
	params.Set("q", fmt.Sprintf("%s site:%s", strings.TrimSpace(query), site))
	if b.MaxResults > 0 {
		params.Set("count", strconv.Itoa(b.MaxResults))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.APIKey)

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var braveResp braveResponse
	if err := json.Unmarshal(bodyBytes, &braveResp); err != nil {
		return nil, fmt.Errorf("failed to parse brave search json: %w", err)
	}

	raw := make([]search.RawResult, len(braveResp.Web.Results))
	for i, r := range braveResp.Web.Results {
		raw[i] = search.RawResult{URL: r.URL, Title: r.Title, Description: r.Description}
	}
	return search.ExtractDocuments(raw), nil
}
