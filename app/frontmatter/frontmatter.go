// Package frontmatter reads the key/value header of a saved note.
package frontmatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"gopkg.in/yaml.v3"
)

const delimiter = "---"

type Fields map[string]any

// Split separates a document into its frontmatter block and body. ok is
// false when the document has no closed frontmatter block.
func Split(doc string) (block, body string, ok bool) {
	doc = strings.TrimPrefix(doc, "\ufeff")
	lines := strings.Split(strings.ReplaceAll(doc, "\r\n", "\n"), "\n")
	if len(lines) < 2 || strings.TrimRight(lines[0], " ") != delimiter {
		return "", doc, false
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " ") == delimiter {
			block = strings.Join(lines[1:i], "\n")
			body = strings.TrimPrefix(strings.Join(lines[i+1:], "\n"), "\n")
			return block, body, true
		}
	}
	return "", doc, false
}

// Parse returns the frontmatter fields of doc. Well-formed YAML is decoded
// with types; otherwise each "key: value" line is read as a string.
func Parse(doc string) (Fields, bool) {
	block, _, ok := Split(doc)
	if !ok {
		return nil, false
	}

	fields := Fields{}
	if err := yaml.Unmarshal([]byte(block), &fields); err == nil {
		return fields, true
	}
	return scanLines(block), true
}

func scanLines(block string) Fields {
	fields := Fields{}
	for _, line := range strings.Split(block, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		value = strings.TrimSpace(value)
		switch {
		case len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0]:
			fields[key] = value[1 : len(value)-1]
		case value == "true":
			fields[key] = true
		case value == "false":
			fields[key] = false
		default:
			fields[key] = value
		}
	}
	return fields
}

// Get looks a key up case-insensitively.
func (f Fields) Get(key string) (any, bool) {
	if v, ok := f[key]; ok {
		return v, true
	}
	for k, v := range f {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func (f Fields) String(key string) string {
	v, ok := f.Get(key)
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

// IsTrue reports whether key holds the boolean true. Strings, including a
// quoted "true", do not count.
func (f Fields) IsTrue(key string) bool {
	v, ok := f.Get(key)
	if !ok {
		return false
	}
	val, isBool := v.(bool)
	return isBool && val
}

// Time returns the first of keys that holds a parseable date.
func (f Fields) Time(keys ...string) (time.Time, bool) {
	for _, key := range keys {
		v, ok := f.Get(key)
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case time.Time:
			return val, true
		case string:
			if strings.TrimSpace(val) == "" {
				continue
			}
			if t, err := dateparse.ParseIn(strings.TrimSpace(val), time.Local); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
