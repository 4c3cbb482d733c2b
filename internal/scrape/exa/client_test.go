package exa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrapeSiteSendsContentsRequest(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"results":[
			{"title":"Acme","url":"https://acme.dev","text":"we make anvils"},
			{"title":"Pricing","url":"https://acme.dev/pricing","text":"free tier"}
		]}`))
	}))
	defer srv.Close()

	client := New(Config{APIKey: "test-key", BaseURL: srv.URL, Subpages: 5}, nil)
	snap, err := client.ScrapeSite(context.Background(), "acme.dev")
	require.NoError(t, err)

	assert.Equal(t, "/contents", gotPath)
	assert.Equal(t, "https://acme.dev", gotBody["urls"])
	assert.Equal(t, float64(5), gotBody["subpages"])
	assert.Equal(t, "fallback", gotBody["livecrawl"])
	assert.Equal(t, true, gotBody["text"])

	require.Len(t, snap.Pages, 2)
	assert.Equal(t, "Acme", snap.Main().Title)
}

func TestScrapeProfileScopesToLinkedIn(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"results":[{"title":"Acme | LinkedIn","text":"anvil company"}]}`))
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, nil)
	snap, err := client.ScrapeProfile(context.Background(), "acme.dev")
	require.NoError(t, err)

	assert.Equal(t, []any{"linkedin.com"}, gotBody["includeDomains"])
	assert.Contains(t, gotBody["query"], "acme.dev")

	require.Len(t, snap.Pages, 1)
	assert.Equal(t, "Acme | LinkedIn", snap.Pages[0].Title)
}

func TestScrapeEmptyResultsIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, nil)
	snap, err := client.ScrapeProfile(context.Background(), "acme.dev")
	require.NoError(t, err)
	assert.Empty(t, snap.Pages)
}

func TestScrapeNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, nil)
	_, err := client.ScrapeSite(context.Background(), "acme.dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
