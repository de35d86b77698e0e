package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/young1lin/deepdive/internal/config"
	"github.com/young1lin/deepdive/internal/metrics"
	"github.com/young1lin/deepdive/internal/models"
	"github.com/young1lin/deepdive/pkg/logger"
)

const (
	defaultBraveURL     = "https://api.search.brave.com/res/v1/web/search"
	defaultBraveTimeout = 15
	defaultBraveCount   = 8
)

var errMissingResults = errors.New("response has no web.results array")

// BraveProvider searches the web through the Brave Search API
type BraveProvider struct {
	apiKey  string
	baseURL string
	count   int
	client  *http.Client
	metrics *metrics.Metrics
}

// NewBraveProvider creates a new Brave provider
func NewBraveProvider(cfg *config.SearchConfig, m *metrics.Metrics) *BraveProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBraveURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultBraveTimeout
	}
	count := cfg.Count
	if count <= 0 {
		count = defaultBraveCount
	}

	return &BraveProvider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		count:   count,
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
		metrics: m,
	}
}

// Name returns the provider name
func (p *BraveProvider) Name() string {
	return models.ToolBraveSearch
}

// IsAvailable returns true if a subscription token is configured
func (p *BraveProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// DefaultCount returns the configured result count
func (p *BraveProvider) DefaultCount() int {
	return p.count
}

// braveSearchResponse represents the subset of the response we read
type braveSearchResponse struct {
	Web *struct {
		Results []braveSearchResult `json:"results"`
	} `json:"web"`
}

// braveSearchResult represents a single web result
type braveSearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Search performs a search query using Brave. It never fails: any error is
// logged and reported as an empty result list.
func (p *BraveProvider) Search(ctx context.Context, query string, count int) []models.SearchResult {
	if count <= 0 {
		count = p.count
	}

	results, err := p.search(ctx, query, count)
	if err != nil {
		logger.Error("search error",
			zap.String("provider", p.Name()),
			zap.String("query", query),
			zap.Error(err),
		)
		p.metrics.ObserveSearchFailure()
		return []models.SearchResult{}
	}

	p.metrics.ObserveSearchResults(len(results))
	logger.Info("brave search completed",
		zap.String("query", query),
		zap.Int("result_count", len(results)),
	)
	return results
}

func (p *BraveProvider) search(ctx context.Context, query string, count int) ([]models.SearchResult, error) {
	endpoint, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	params := endpoint.Query()
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	logger.Debug("brave response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("brave http %d: %s", resp.StatusCode, truncate(string(body), 300))
	}

	var searchResp braveSearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if searchResp.Web == nil || searchResp.Web.Results == nil {
		return nil, errMissingResults
	}

	results := make([]models.SearchResult, 0, len(searchResp.Web.Results))
	for _, item := range searchResp.Web.Results {
		results = append(results, models.SearchResult{
			Title:       item.Title,
			URL:         item.URL,
			Description: item.Description,
		})
	}
	return results, nil
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars]) + "..."
}
