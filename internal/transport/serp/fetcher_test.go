package serp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func newTestFetcher(baseURL string) *Fetcher {
	return NewFetcher(&Config{
		BaseURL:  baseURL,
		APIKey:   "test-key",
		Country:  "US",
		Language: "en",
		PageSize: 10,
		Logger:   zap.NewNop(),
	})
}

func TestFetch_SendsQueryParamsAndAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "quantum chip" {
			t.Errorf("unexpected q: %q", q.Get("q"))
		}
		if q.Get("gl") != "US" || q.Get("hl") != "en" {
			t.Errorf("unexpected locale params: gl=%q hl=%q", q.Get("gl"), q.Get("hl"))
		}
		if q.Get("num") != "10" || q.Get("page") != "1" {
			t.Errorf("unexpected paging params: num=%q page=%q", q.Get("num"), q.Get("page"))
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("unexpected accept header: %s", r.Header.Get("Accept"))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer server.Close()

	f := newTestFetcher(server.URL)
	if _, err := f.Fetch(context.Background(), "quantum chip"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetch_MapsResultsToDocuments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []any{
				map[string]any{
					"url":         "https://example.com/a",
					"title":       "Quantum chip unveiled",
					"description": "A new record in qubit count.",
				},
			},
		})
	}))
	defer server.Close()

	f := newTestFetcher(server.URL)
	docs, err := f.Fetch(context.Background(), "quantum chip")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].URI != "https://example.com/a" {
		t.Errorf("unexpected uri: %s", docs[0].URI)
	}
	want := "Quantum chip unveiled - A new record in qubit count."
	if docs[0].Text != want {
		t.Errorf("unexpected text:\ngot:  %q\nwant: %q", docs[0].Text, want)
	}
}

func TestFetch_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	f := newTestFetcher(server.URL)
	if _, err := f.Fetch(context.Background(), "anything"); err == nil {
		t.Fatal("expected error for 429 response")
	}
}
