// Package notify delivers fire-and-forget status messages about runs.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const title = "Feed Vault"

// Notifier never blocks the caller and never reports failures.
type Notifier interface {
	Notify(message string)
}

// Log writes messages to the structured log.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(message string) {
	l.logger.Info("Notification", "message", message)
}

// Ntfy posts messages to an ntfy topic URL in the background.
type Ntfy struct {
	endpoint  string
	userAgent string
	client    *http.Client
	logger    *slog.Logger
	wg        sync.WaitGroup
}

func NewNtfy(endpoint, userAgent string, client *http.Client, logger *slog.Logger) *Ntfy {
	return &Ntfy{
		endpoint:  endpoint,
		userAgent: userAgent,
		client:    client,
		logger:    logger,
	}
}

func (n *Ntfy) Notify(message string) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := n.send(ctx, message); err != nil {
			n.logger.Warn("Failed to send notification", "error", err)
		}
	}()
}

// Wait blocks until pending notifications are delivered.
func (n *Ntfy) Wait() {
	n.wg.Wait()
}

func (n *Ntfy) send(ctx context.Context, message string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("failed to build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", title)
	req.Header.Set("Tags", "feed-vault")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Multi fans a message out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(message string) {
	for _, n := range m {
		n.Notify(message)
	}
}

// New returns a log notifier, plus ntfy delivery when endpoint is set.
func New(endpoint, userAgent string, logger *slog.Logger) Notifier {
	log := NewLog(logger)
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return log
	}
	return Multi{log, NewNtfy(endpoint, userAgent, &http.Client{Timeout: 10 * time.Second}, logger)}
}

// Wait blocks until every asynchronous notifier behind n has delivered.
func Wait(n Notifier) {
	switch v := n.(type) {
	case Multi:
		for _, inner := range v {
			Wait(inner)
		}
	case interface{ Wait() }:
		v.Wait()
	}
}
