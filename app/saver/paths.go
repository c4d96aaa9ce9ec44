package saver

import (
	"path"
	"strings"

	"github.com/lysyi3m/feed-vault/app/feed"
	"github.com/lysyi3m/feed-vault/app/settings"
)

const (
	LedgerFile    = ".feed-ledger.json"
	NoteExtension = ".md"
)

// FeedFolder is root/group/feed, or root/feed for ungrouped feeds. Each
// segment is sanitized so names cannot introduce extra path levels.
func FeedFolder(p settings.Policy) string {
	segments := []string{segment(p.Root)}
	if p.GroupName != "" {
		segments = append(segments, feed.SanitizeFileName(p.GroupName))
	}
	segments = append(segments, feed.SanitizeFileName(p.FolderName))
	return path.Join(segments...)
}

// RootFolder is the sanitized output root that holds every feed folder.
func RootFolder(root string) string {
	return segment(root)
}

// segment cleans a configured root that may itself be nested.
func segment(root string) string {
	parts := strings.Split(strings.ReplaceAll(root, `\`, "/"), "/")
	cleaned := parts[:0]
	for _, part := range parts {
		if part = feed.SanitizeFileName(part); part != "" {
			cleaned = append(cleaned, part)
		}
	}
	return path.Join(cleaned...)
}

// ImageFolder returns where a note's image is stored for the configured
// location mode.
func ImageFolder(p settings.Policy, noteFolder string) string {
	switch p.Images.Location {
	case settings.LocationRoot:
		return ""
	case settings.LocationNote:
		return noteFolder
	case settings.LocationSubfolder:
		base := noteFolder
		if p.Images.SubfolderBase == settings.SubfolderBaseRoot {
			base = RootFolder(p.Root)
		}
		return path.Join(base, segment(p.Images.Subfolder))
	case settings.LocationCustom:
		return segment(p.Images.Folder)
	default:
		return segment(p.AttachmentFolder)
	}
}
