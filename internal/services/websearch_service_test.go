package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func searxngStub(t *testing.T, hits *atomic.Int32, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("format") != "json" {
			http.Error(w, "expected json format", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

const stubResults = `{"results":[
	{"title":"Result one","url":"https://a.example","content":"first snippet"},
	{"title":"Result two","url":"https://b.example","content":"second snippet"},
	{"title":"Result three","url":"https://c.example","content":"third snippet"},
	{"title":"Result four","url":"https://d.example","content":"fourth snippet"}
]}`

func TestSearchCapsResults(t *testing.T) {
	srv := searxngStub(t, nil, stubResults)
	defer srv.Close()

	s := NewWebSearchService(srv.URL, time.Minute, 3)
	results, err := s.Search(context.Background(), "go generics")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Title != "Result one" || results[0].Snippet != "first snippet" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
}

func TestSearchCachesQueries(t *testing.T) {
	var hits atomic.Int32
	srv := searxngStub(t, &hits, stubResults)
	defer srv.Close()

	s := NewWebSearchService(srv.URL, time.Minute, 3)
	for i := 0; i < 4; i++ {
		if _, err := s.Search(context.Background(), "Go Generics"); err != nil {
			t.Fatalf("Search returned error: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 upstream hit with caching, got %d", hits.Load())
	}
}

func TestSearchFailsOverBetweenInstances(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer dead.Close()
	alive := searxngStub(t, nil, stubResults)
	defer alive.Close()

	s := NewWebSearchService(dead.URL+","+alive.URL, time.Minute, 3)
	results, err := s.Search(context.Background(), "resilience")
	if err != nil {
		t.Fatalf("expected failover to healthy instance, got error: %v", err)
	}
	if len(results) == 0 {
		t.Error("expected results from healthy instance")
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	s := NewWebSearchService("http://localhost:1", time.Minute, 3)
	if _, err := s.Search(context.Background(), "   "); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestFormatSnippets(t *testing.T) {
	out := FormatSnippets([]SearchResult{
		{Title: "Go 1.25 released", URL: "https://go.dev", Snippet: "The latest Go release"},
	})
	for _, want := range []string{"Go 1.25 released", "https://go.dev", "The latest Go release"} {
		if !strings.Contains(out, want) {
			t.Errorf("formatted snippets missing %q:\n%s", want, out)
		}
	}
	if FormatSnippets(nil) != "" {
		t.Error("expected empty string for no results")
	}
}
