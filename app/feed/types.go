package feed

import (
	"reflect"
	"strings"
)

// Item is the canonical, format-agnostic representation of one feed entry.
// All string fields are entity-decoded and trimmed.
type Item struct {
	Title            string   `json:"title"`
	Link             string   `json:"link"`
	Content          string   `json:"content"`
	Description      string   `json:"description"`
	DescriptionShort string   `json:"descriptionShort"`
	Author           string   `json:"author"`
	PubDate          string   `json:"pubDate"` // original string, not reformatted
	ImageURL         string   `json:"imageUrl"`
	Categories       []string `json:"categories"`
}

// WithImage returns a copy of the item carrying the given image URL or storage reference.
func (i Item) WithImage(imageURL string) Item {
	i.Categories = append([]string(nil), i.Categories...)
	i.ImageURL = imageURL
	return i
}

// WithContent returns a copy of the item with content replaced.
func (i Item) WithContent(content string) Item {
	i.Categories = append([]string(nil), i.Categories...)
	i.Content = content
	return i
}

// Field looks up an item field by its JSON name (case-sensitive).
func (i Item) Field(name string) (any, bool) {
	v := reflect.ValueOf(i)
	t := v.Type()
	for n := 0; n < t.NumField(); n++ {
		tag, _, _ := strings.Cut(t.Field(n).Tag.Get("json"), ",")
		if tag == name {
			return v.Field(n).Interface(), true
		}
	}
	return nil, false
}

// Document is a fetched feed: its title and raw entries in source order.
type Document struct {
	Title   string
	Type    string // "rss" or "atom"
	Entries []*Node
}
