package saver

import (
	"testing"

	"github.com/lysyi3m/feed-vault/app/settings"
)

func TestFeedFolder(t *testing.T) {
	tests := []struct {
		policy   settings.Policy
		expected string
	}{
		{settings.Policy{Root: "Feeds", FolderName: "Go Blog"}, "Feeds/Go Blog"},
		{settings.Policy{Root: "Feeds", GroupName: "Tech", FolderName: "Go Blog"}, "Feeds/Tech/Go Blog"},
		{settings.Policy{Root: "Notes/Feeds", FolderName: "A/B"}, "Notes/Feeds/A - B"},
		{settings.Policy{Root: "Feeds", GroupName: "../up", FolderName: "x"}, "Feeds/up/x"},
	}

	for _, tt := range tests {
		if got := FeedFolder(tt.policy); got != tt.expected {
			t.Errorf("FeedFolder(%+v) = %q, expected %q", tt.policy, got, tt.expected)
		}
	}
}
