package notify

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestNtfy_Notify(t *testing.T) {
	var (
		mu      sync.Mutex
		body    string
		headers http.Header
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = string(data)
		headers = r.Header.Clone()
		mu.Unlock()
	}))
	defer server.Close()

	n := NewNtfy(server.URL+"/feeds", "test-agent", server.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	n.Notify("Feed update complete")
	n.Wait()

	mu.Lock()
	defer mu.Unlock()
	if body != "Feed update complete" {
		t.Errorf("Expected message body, got %q", body)
	}
	if headers.Get("Title") != "Feed Vault" || headers.Get("User-Agent") != "test-agent" {
		t.Errorf("Unexpected headers %v", headers)
	}
}

func TestNtfy_FailureIsLogged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer server.Close()

	var logs bytes.Buffer
	n := NewNtfy(server.URL, "test-agent", server.Client(), slog.New(slog.NewTextHandler(&logs, nil)))
	n.Notify("hello")
	n.Wait()

	if !strings.Contains(logs.String(), "ntfy returned 403") {
		t.Errorf("Expected failure to be logged, got %q", logs.String())
	}
}

func TestNew_LogOnlyWithoutEndpoint(t *testing.T) {
	var logs bytes.Buffer
	n := New("  ", "test-agent", slog.New(slog.NewTextHandler(&logs, nil)))

	if _, ok := n.(*Log); !ok {
		t.Fatalf("Expected log notifier, got %T", n)
	}
	n.Notify("Starting feed update")
	if !strings.Contains(logs.String(), "Starting feed update") {
		t.Errorf("Expected message in log, got %q", logs.String())
	}
}

type recorder struct{ messages []string }

func (r *recorder) Notify(message string) { r.messages = append(r.messages, message) }

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Multi{a, b}.Notify("x")

	if len(a.messages) != 1 || len(b.messages) != 1 {
		t.Errorf("Expected both notifiers called")
	}
}

func TestWait_ReachesNestedNtfy(t *testing.T) {
	var (
		mu    sync.Mutex
		count int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		count++
		mu.Unlock()
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := Multi{NewLog(logger), NewNtfy(server.URL, "test-agent", server.Client(), logger)}
	n.Notify("one")
	n.Notify("two")
	Wait(n)

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Errorf("Expected 2 deliveries after Wait, got %d", count)
	}
}
