// Package render fills note templates with feed item values.
package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/lysyi3m/feed-vault/app/feed"
)

type Mode int

const (
	ModeFileName Mode = iota
	ModeYAML
	ModeBody
)

// DateLayout is local time without zone suffix or fractional seconds.
const DateLayout = "2006-01-02T15:04:05"

type Context struct {
	FeedName string
	Now      time.Time
}

// token matches a linked author/feedname token (optionally quoted) or any
// plain {{name}} token. Both are replaced in one scan so substituted values
// are never scanned again.
var token = regexp.MustCompile(`("?)\[\[\{\{(author|feedname)\}\}\]\]("?)|\{\{([#\w]+)\}\}`)

const imageToken = "{{image}}"

// Render substitutes {{token}} placeholders in tpl with values from item.
// Known tokens are rendered first; any other token is looked up as an item
// field by its JSON name. Unknown names are left untouched.
func Render(tpl string, item feed.Item, mode Mode, ctx Context) string {
	if item.ImageURL == "" && strings.Contains(tpl, imageToken) {
		tpl = dropLinesWith(tpl, imageToken)
	}

	return token.ReplaceAllStringFunc(tpl, func(match string) string {
		groups := token.FindStringSubmatch(match)
		if linked := groups[2]; linked != "" {
			return renderLinked(linked, groups[1], groups[3], item, mode, ctx)
		}

		name := groups[4]
		if value, ok := known(name, item, mode, ctx); ok {
			return value
		}
		if value, ok := item.Field(name); ok {
			return formatValue(value, mode)
		}
		return match
	})
}

// renderLinked renders [[{{author}}]] style internal links. In YAML the
// link is always a quoted string; elsewhere surrounding quotes stay as written.
func renderLinked(name, openQuote, closeQuote string, item feed.Item, mode Mode, ctx Context) string {
	value := item.Author
	if name == "feedname" {
		value = ctx.FeedName
	}
	if mode == ModeYAML {
		return `"[[` + yamlEscape(value) + `]]"`
	}
	return openQuote + "[[" + value + "]]" + closeQuote
}

func known(name string, item feed.Item, mode Mode, ctx Context) (string, bool) {
	switch name {
	case "title":
		return formatValue(item.Title, mode), true
	case "author":
		return formatValue(item.Author, mode), true
	case "link":
		return formatValue(item.Link, mode), true
	case "feedname":
		return formatValue(ctx.FeedName, mode), true
	case "snippet":
		return formatValue(item.DescriptionShort, mode), true
	case "content":
		return formatValue(item.Content, mode), true
	case "markdown":
		return formatValue(toMarkdown(item.Content), mode), true
	case "datesaved":
		return formatValue(ctx.Now.Format(DateLayout), mode), true
	case "datepub":
		return formatValue(FormatPubDate(item.PubDate), mode), true
	case "#tags":
		return formatValue(Tags(item.Categories), mode), true
	case "image":
		return renderImage(item.ImageURL, mode), true
	}
	return "", false
}

// FormatPubDate reformats a parseable publish date to DateLayout in local
// time and returns anything else verbatim.
func FormatPubDate(pubDate string) string {
	if t, ok := feed.ParsePubDate(pubDate); ok {
		return t.Local().Format(DateLayout)
	}
	return pubDate
}

func Tags(categories []string) string {
	tags := make([]string, 0, len(categories))
	for _, category := range categories {
		tags = append(tags, "#"+strings.Join(strings.Fields(category), "-"))
	}
	return strings.Join(tags, " ")
}

func renderImage(value string, mode Mode) string {
	isReference := strings.HasPrefix(value, "[[")
	switch mode {
	case ModeYAML:
		if isReference {
			return `"` + yamlEscape(value) + `"`
		}
		return value
	case ModeBody:
		if value == "" {
			return ""
		}
		if isReference {
			return "!" + value
		}
		return "![](" + value + ")"
	default:
		return value
	}
}

func formatValue(value any, mode Mode) string {
	switch v := value.(type) {
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []string:
		parts := make([]string, len(v))
		for i, s := range v {
			parts[i] = formatValue(s, mode)
		}
		return strings.Join(parts, ", ")
	case string:
		if mode == ModeYAML {
			return yamlEscape(v)
		}
		return v
	default:
		return formatValue(fmt.Sprint(v), mode)
	}
}

// yamlEscape makes s safe inside a double-quoted YAML scalar.
func yamlEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}

func dropLinesWith(tpl, marker string) string {
	lines := strings.Split(tpl, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if !strings.Contains(line, marker) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func toMarkdown(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return html
	}
	return markdown
}
