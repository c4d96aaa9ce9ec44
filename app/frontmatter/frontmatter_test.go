package frontmatter

import (
	"testing"
	"time"
)

const note = `---
title: "A \"quoted\" title"
link: "https://example.com/a"
published: "2023-01-01T10:00:00"
Read: true
---

Body text
`

func TestSplit(t *testing.T) {
	block, body, ok := Split(note)
	if !ok {
		t.Fatalf("Expected frontmatter block")
	}
	if body != "Body text\n" {
		t.Errorf("Expected body 'Body text', got %q", body)
	}
	if block == "" {
		t.Errorf("Expected non-empty block")
	}

	if _, body, ok := Split("No frontmatter\n"); ok || body != "No frontmatter\n" {
		t.Errorf("Expected no block for plain document, got ok=%v body=%q", ok, body)
	}
	if _, _, ok := Split("---\nunterminated: true\n"); ok {
		t.Errorf("Expected unterminated block to be rejected")
	}
}

func TestParse(t *testing.T) {
	fields, ok := Parse(note)
	if !ok {
		t.Fatalf("Expected frontmatter")
	}

	if got := fields.String("title"); got != `A "quoted" title` {
		t.Errorf("Expected unescaped title, got %q", got)
	}
	if got := fields.String("LINK"); got != "https://example.com/a" {
		t.Errorf("Expected case-insensitive link lookup, got %q", got)
	}
	if !fields.IsTrue("read") {
		t.Errorf("Expected read to be true")
	}

	published, ok := fields.Time("published")
	if !ok {
		t.Fatalf("Expected published date")
	}
	if published.Year() != 2023 || published.Month() != time.January {
		t.Errorf("Unexpected published date: %v", published)
	}
}

func TestParse_FallsBackToLineScan(t *testing.T) {
	doc := "---\ntitle: broken: [yaml\nlink: https://example.com/b\nupload date: 2024-02-03\n---\n\nbody"

	fields, ok := Parse(doc)
	if !ok {
		t.Fatalf("Expected frontmatter")
	}
	if got := fields.String("link"); got != "https://example.com/b" {
		t.Errorf("Expected link from line scan, got %q", got)
	}
	if _, ok := fields.Time("published", "upload date"); !ok {
		t.Errorf("Expected date from second key")
	}
}

func TestIsTrue(t *testing.T) {
	tests := []struct {
		doc      string
		expected bool
	}{
		{"---\nread: true\n---\n", true},
		{"---\nread: \"true\"\n---\n", false},
		{"---\nread: 'true'\n---\n", false},
		{"---\nread: True\n---\n", true},
		{"---\ntitle: broken: [yaml\nread: true\n---\n", true},
		{"---\ntitle: broken: [yaml\nread: \"true\"\n---\n", false},
		{"---\nread: false\n---\n", false},
		{"---\nread: yes please\n---\n", false},
		{"---\nother: true\n---\n", false},
	}

	for _, tt := range tests {
		fields, _ := Parse(tt.doc)
		if got := fields.IsTrue("read"); got != tt.expected {
			t.Errorf("IsTrue for %q = %v, expected %v", tt.doc, got, tt.expected)
		}
	}

	var missing Fields
	if missing.IsTrue("read") {
		t.Errorf("Expected nil fields to report false")
	}
}
