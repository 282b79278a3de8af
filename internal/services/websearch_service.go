package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// SearchResult is one web hit folded into a search-lane prompt.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// searxngResponse mirrors the SearXNG JSON API shape.
type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// WebSearchService queries SearXNG instances round-robin, caches results
// for a short TTL, and rate-limits outbound calls so a burst of search
// turns can't hammer the instances.
type WebSearchService struct {
	urls       []string
	counter    atomic.Uint64
	client     *http.Client
	cache      *gocache.Cache
	limiter    *rate.Limiter
	maxResults int
}

// NewWebSearchService creates the service. baseURLs accepts a
// comma-separated list of SearXNG instances.
func NewWebSearchService(baseURLs string, cacheTTL time.Duration, maxResults int) *WebSearchService {
	var urls []string
	for _, u := range strings.Split(baseURLs, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, strings.TrimSuffix(u, "/"))
		}
	}
	if maxResults <= 0 {
		maxResults = 3
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &WebSearchService{
		urls:       urls,
		client:     &http.Client{Timeout: 10 * time.Second},
		cache:      gocache.New(cacheTTL, 10*time.Minute),
		limiter:    rate.NewLimiter(rate.Every(time.Second), 3),
		maxResults: maxResults,
	}
}

// Search returns up to the configured number of results for a query.
// Identical queries within the cache TTL are served from cache without
// touching the network.
func (s *WebSearchService) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if len(s.urls) == 0 {
		return nil, fmt.Errorf("no search instances configured")
	}

	cacheKey := strings.ToLower(query)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.([]SearchResult), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("search rate limit wait: %w", err)
	}

	// Walk the instances round-robin; first healthy one wins.
	start := s.counter.Add(1)
	var lastErr error
	for i := 0; i < len(s.urls); i++ {
		base := s.urls[(start+uint64(i))%uint64(len(s.urls))]
		results, err := s.query(ctx, base, query)
		if err != nil {
			lastErr = err
			log.Printf("⚠️ [SEARCH] Instance %s failed: %v", base, err)
			continue
		}
		s.cache.Set(cacheKey, results, gocache.DefaultExpiration)
		return results, nil
	}
	return nil, fmt.Errorf("all search instances failed: %w", lastErr)
}

func (s *WebSearchService) query(ctx context.Context, base, query string) ([]SearchResult, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&format=json", base, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "loom-orchestrator/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	var parsed searxngResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	results := make([]SearchResult, 0, s.maxResults)
	for _, r := range parsed.Results {
		if r.Title == "" && r.Content == "" {
			continue
		}
		results = append(results, SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
		})
		if len(results) == s.maxResults {
			break
		}
	}
	return results, nil
}

// FormatSnippets renders search results for inclusion in a prompt.
func FormatSnippets(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Web search results:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   Source: %s\n", i+1, r.Title, r.Snippet, r.URL)
	}
	return b.String()
}

// searcher is what the orchestrator needs from web search.
type searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

var _ searcher = (*WebSearchService)(nil)
