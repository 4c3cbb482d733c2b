package grading

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitegrade/sitegrade/internal/grade"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return New(Config{
		APIKey:        "test-key",
		BaseURL:       baseURL,
		Model:         "primary-model",
		FallbackModel: "fallback-model",
		Timeout:       5 * time.Second,
	}, nil)
}

func sampleRequest() grade.Request {
	return grade.Request{
		URL:      "example.com",
		Mainpage: grade.Page{URL: "https://example.com", Text: "welcome"},
		Subpages: []grade.Page{{URL: "https://example.com/about", Text: "about"}},
	}
}

func TestGradePublishesSnapshotsInArrivalOrder(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		lines := []string{
			`{"result":{"summary":"first look"}}`,
			`{"result":{"summary":"first look","overall_score":70}}`,
			`{"result":{"summary":"first look","overall_score":82,"grade_letter":"A","categories":{"seo":{"score":88,"findings":["a","b","c"],"recommendation":"r"}}}}`,
		}
		for _, l := range lines {
			_, err := w.Write([]byte(l + "\n"))
			require.NoError(t, err)
		}
	}))
	defer srv.Close()

	var published []grade.Report
	final, err := newTestClient(t, srv.URL).Grade(context.Background(), sampleRequest(), func(r grade.Report) {
		published = append(published, r)
	})
	require.NoError(t, err)

	require.Len(t, published, 3)
	assert.Nil(t, published[0].OverallScore)
	require.NotNil(t, published[1].OverallScore)
	assert.Equal(t, 70, *published[1].OverallScore)
	assert.Equal(t, 82, *final.OverallScore)
	assert.True(t, final.Complete())

	// Field completeness never decreases across published snapshots.
	for i := 1; i < len(published); i++ {
		if published[i-1].Summary != nil {
			assert.NotNil(t, published[i].Summary)
		}
		if published[i-1].OverallScore != nil {
			assert.NotNil(t, published[i].OverallScore)
		}
	}
}

func TestGradeSkipsMalformedFrames(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, err := w.Write([]byte(`{"result":{"summary":"ok"}}` + "\n" +
			`{"result": not json at all` + "\n" +
			"\n" +
			`{"result":{"summary":"ok","overall_score":64}}` + "\n"))
		require.NoError(t, err)
	}))
	defer srv.Close()

	var published []grade.Report
	final, err := newTestClient(t, srv.URL).Grade(context.Background(), sampleRequest(), func(r grade.Report) {
		published = append(published, r)
	})
	require.NoError(t, err)
	assert.Len(t, published, 2, "malformed and blank lines are skipped, not fatal")
	require.NotNil(t, final.OverallScore)
	assert.Equal(t, 64, *final.OverallScore)
}

func TestGradeFailsWithoutParseableFrames(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, err := w.Write([]byte("garbage\nmore garbage\n"))
		require.NoError(t, err)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Grade(context.Background(), sampleRequest(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a parseable frame")
}

func TestGradeFallsBackOnceOnRateLimit(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gradeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		models = append(models, req.Model)
		mu.Unlock()

		if req.Model == "primary-model" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, err := w.Write([]byte(`{"result":{"overall_score":55}}` + "\n"))
		require.NoError(t, err)
	}))
	defer srv.Close()

	final, err := newTestClient(t, srv.URL).Grade(context.Background(), sampleRequest(), nil)
	require.NoError(t, err)
	assert.Equal(t, 55, *final.OverallScore)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"primary-model", "fallback-model"}, models)
}

func TestGradeFailsPermanentlyWhenFallbackRejected(t *testing.T) {
	t.Parallel()

	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Grade(context.Background(), sampleRequest(), nil)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls, "exactly one fallback attempt, no further retries")
}
