package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/feed-vault/app/database"
	"github.com/lysyi3m/feed-vault/app/settings"
	"github.com/lysyi3m/feed-vault/app/tasks"
)

const testKey = "secret"

type fakeUpdater struct {
	mu      sync.Mutex
	state   tasks.State
	runs    chan tasks.RunOptions
	purged  []string
	purgeFn func(url string) error
}

func (f *fakeUpdater) Run(ctx context.Context, opts tasks.RunOptions) (tasks.Summary, error) {
	f.runs <- opts
	return tasks.Summary{RunID: "run"}, nil
}

func (f *fakeUpdater) PurgeFeed(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.purgeFn != nil {
		if err := f.purgeFn(url); err != nil {
			return err
		}
	}
	f.purged = append(f.purged, url)
	return nil
}

func (f *fakeUpdater) State() tasks.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

type fakeScheduler struct {
	intervals []time.Duration
}

func (f *fakeScheduler) Start() {}
func (f *fakeScheduler) Stop() {}

func (f *fakeScheduler) Reschedule(interval time.Duration) {
	f.intervals = append(f.intervals, interval)
}

type fakeRuns struct {
	feedURL string
	limit   int
}

func (f *fakeRuns) RecordFeedRun(run database.FeedRun) error { return nil }

func (f *fakeRuns) ListRecent(limit int) ([]database.FeedRun, error) {
	f.limit = limit
	return []database.FeedRun{{RunID: "a", FeedName: "Blog"}}, nil
}

func (f *fakeRuns) ListForFeed(feedURL string, limit int) ([]database.FeedRun, error) {
	f.feedURL, f.limit = feedURL, limit
	return []database.FeedRun{}, nil
}

type testServer struct {
	engine    *gin.Engine
	store     *settings.Store
	updater   *fakeUpdater
	scheduler *fakeScheduler
	runs      *fakeRuns
}

func newTestServer(t *testing.T, apiKey string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.yml"))
	if err := store.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	err := store.Update(func(st *settings.Settings) error {
		st.Groups = []settings.Group{{ID: "g1", Name: "Tech"}}
		st.Feeds = []settings.Feed{
			{Name: "Blog", URL: "https://example.com/feed", Enabled: true, GroupID: "g1"},
			{Name: "Old", URL: "https://example.com/old"},
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	ts := &testServer{
		store:     store,
		updater:   &fakeUpdater{runs: make(chan tasks.RunOptions, 1)},
		scheduler: &fakeScheduler{},
		runs:      &fakeRuns{},
	}
	handler := NewHandler(context.Background(), store, ts.updater, ts.scheduler, ts.runs)
	ts.engine = NewServer(handler, apiKey)
	return ts
}

func (ts *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("X-API-Key", testKey)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, testKey)

	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if body["state"] != "idle" || body["active_feeds"] != float64(1) {
		t.Errorf("Unexpected health body %v", body)
	}
}

func TestAuthMiddleware(t *testing.T) {
	ts := newTestServer(t, testKey)

	tests := []struct {
		name   string
		header string
		value  string
		status int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
		{"api key header", "X-API-Key", testKey, http.StatusOK},
		{"bearer", "Authorization", "Bearer " + testKey, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			ts.engine.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	ts := newTestServer(t, "")

	if w := ts.do(http.MethodGet, "/api/feeds", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 with API disabled, got %d", w.Code)
	}
}

func TestListFeeds(t *testing.T) {
	ts := newTestServer(t, testKey)

	w := ts.do(http.MethodGet, "/api/feeds", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		Feeds []feedInfo `json:"feeds"`
		Total int        `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if body.Total != 2 {
		t.Fatalf("Expected 2 feeds, got %d", body.Total)
	}
	if body.Feeds[0].Group != "Tech" || body.Feeds[0].Folder != "Feeds/Tech/Blog" {
		t.Errorf("Unexpected feed info %+v", body.Feeds[0])
	}
}

func TestTriggerUpdate(t *testing.T) {
	ts := newTestServer(t, testKey)

	w := ts.do(http.MethodPost, "/api/update?url=https://example.com/feed", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}

	select {
	case opts := <-ts.updater.runs:
		if opts.FeedURL != "https://example.com/feed" || opts.Scheduled {
			t.Errorf("Unexpected run options %+v", opts)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Expected run to start")
	}
}

func TestTriggerUpdate_Conflict(t *testing.T) {
	ts := newTestServer(t, testKey)
	ts.updater.state = tasks.StateRunning

	if w := ts.do(http.MethodPost, "/api/update", ""); w.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", w.Code)
	}
}

func TestTriggerUpdate_UnknownFeed(t *testing.T) {
	ts := newTestServer(t, testKey)

	if w := ts.do(http.MethodPost, "/api/update?url=https://nope.example.com", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestPurgeFeed(t *testing.T) {
	ts := newTestServer(t, testKey)

	if w := ts.do(http.MethodPost, "/api/feeds/purge", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without url, got %d", w.Code)
	}
	if w := ts.do(http.MethodPost, "/api/feeds/purge?url=https://nope.example.com", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown feed, got %d", w.Code)
	}

	w := ts.do(http.MethodPost, "/api/feeds/purge?url=https://example.com/old", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(ts.updater.purged) != 1 || ts.updater.purged[0] != "https://example.com/old" {
		t.Errorf("Expected purge call, got %v", ts.updater.purged)
	}

	ts.updater.purgeFn = func(string) error { return tasks.ErrRunInProgress }
	if w := ts.do(http.MethodPost, "/api/feeds/purge?url=https://example.com/feed", ""); w.Code != http.StatusConflict {
		t.Errorf("Expected 409 during a run, got %d", w.Code)
	}
}

func TestListRuns(t *testing.T) {
	ts := newTestServer(t, testKey)

	w := ts.do(http.MethodGet, "/api/runs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ts.runs.limit != defaultRunsLimit {
		t.Errorf("Expected default limit, got %d", ts.runs.limit)
	}

	if w := ts.do(http.MethodGet, "/api/runs?url=https://example.com/feed&limit=5", ""); w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ts.runs.feedURL != "https://example.com/feed" || ts.runs.limit != 5 {
		t.Errorf("Expected per-feed query, got %q/%d", ts.runs.feedURL, ts.runs.limit)
	}

	if w := ts.do(http.MethodGet, "/api/runs?limit=x", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", w.Code)
	}
}

func TestSetInterval(t *testing.T) {
	ts := newTestServer(t, testKey)

	w := ts.do(http.MethodPut, "/api/settings/interval", `{"minutes": 15}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := ts.store.Snapshot().UpdateInterval; got != 15 {
		t.Errorf("Expected interval saved, got %d", got)
	}
	if len(ts.scheduler.intervals) != 1 || ts.scheduler.intervals[0] != 15*time.Minute {
		t.Errorf("Expected scheduler rescheduled, got %v", ts.scheduler.intervals)
	}

	if w := ts.do(http.MethodPut, "/api/settings/interval", `{"minutes": -1}`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for negative interval, got %d", w.Code)
	}
	if w := ts.do(http.MethodPut, "/api/settings/interval", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing interval, got %d", w.Code)
	}
}
