package feed

import (
	"cmp"
	"strings"
)

// Normalize converts a raw RSS item or Atom entry into a canonical Item.
// Missing fields yield empty values; it never fails.
func Normalize(entry *Node) Item {
	item := Item{
		Title:       textOf(entry.Get("title")),
		Link:        linkOf(entry),
		Content:     firstText(entry, "content:encoded", "content", "description", "summary"),
		Description: firstText(entry, "description", "summary"),
		Author:      authorOf(entry),
		PubDate:     firstText(entry, "pubDate", "published", "updated", "dc:date"),
		Categories:  categoriesOf(entry.Get("category")),
	}
	item.DescriptionShort = ShortDescription(cmp.Or(item.Description, item.Content))
	return item
}

func textOf(field Field) string {
	return DecodeText(field.First().Value())
}

func firstText(entry *Node, names ...string) string {
	for _, name := range names {
		if text := textOf(entry.Get(name)); text != "" {
			return text
		}
	}
	return ""
}

// linkOf picks the alternate link, else the first one. A link node carries
// its URL either in href (Atom) or as text (RSS).
func linkOf(entry *Node) string {
	links := entry.Get("link")

	chosen := links.First()
	for _, link := range links {
		if link.Attr("rel") == "alternate" {
			chosen = link
			break
		}
	}

	if chosen != nil {
		if link := DecodeText(cmp.Or(chosen.Attr("href"), chosen.Text)); link != "" {
			return link
		}
	}

	guid := entry.Get("guid").First()
	if guid != nil && guid.Attr("isPermaLink") != "false" {
		if id := DecodeText(guid.Text); strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
			return id
		}
	}
	return ""
}

func authorOf(entry *Node) string {
	if creator := textOf(entry.Get("dc:creator")); creator != "" {
		return creator
	}
	author := entry.Get("author").First()
	if author == nil {
		return ""
	}
	if name := textOf(author.Get("name")); name != "" {
		return name
	}
	return DecodeText(author.Text)
}

// categoriesOf accepts RSS <category>text</category> and Atom
// <category term="..."/> shapes, singular or repeated.
func categoriesOf(field Field) []string {
	categories := make([]string, 0, len(field))
	for _, node := range field {
		value := node.Attr("term")
		if strings.TrimSpace(value) == "" {
			value = node.Value()
		}
		if value = DecodeText(value); value != "" {
			categories = append(categories, value)
		}
	}
	return categories
}
