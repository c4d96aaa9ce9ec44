package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetcher_Fetch(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssWithItem(`<title>Fetched</title><link>https://example.com/f</link>`)))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), NewParser(), "Feed Vault/1.0")

	doc, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if gotAgent != "Feed Vault/1.0" {
		t.Errorf("Expected User-Agent header, got: %s", gotAgent)
	}
	if doc.Title != "Feed" {
		t.Errorf("Expected feed title 'Feed', got: %s", doc.Title)
	}
	if len(doc.Entries) != 1 || Normalize(doc.Entries[0]).Title != "Fetched" {
		t.Errorf("Expected one 'Fetched' entry")
	}
}

func TestFetcher_Fetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), NewParser(), "test")

	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Errorf("Expected error for 500 response")
	}
}

func TestFetcher_Fetch_NotAFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), NewParser(), "test")

	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Errorf("Expected error for HTML page")
	}
}
