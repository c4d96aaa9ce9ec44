package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
)

// Node is one raw XML element of a feed entry. A field of an entry may be
// absent, a single node, or several nodes; each node carries attributes,
// a text node, child elements, or any mix of those.
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*Node

	// inner is the raw markup between the start and end tag, kept only for
	// elements that may embed unescaped HTML.
	inner string
}

// Field is the set of sibling nodes sharing one qualified name.
type Field []*Node

// First returns the first node of the field or nil when it is absent.
func (f Field) First() *Node {
	if len(f) == 0 {
		return nil
	}
	return f[0]
}

// Attr returns the named attribute, or "" for a nil node.
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	return n.Attrs[name]
}

// Get returns all direct children with the given qualified name.
func (n *Node) Get(name string) Field {
	if n == nil {
		return nil
	}
	var field Field
	for _, child := range n.Children {
		if child.Name == name {
			field = append(field, child)
		}
	}
	return field
}

// Value returns the textual value of the node. Elements carrying child
// markup (xhtml content, unescaped HTML in descriptions) return that markup.
func (n *Node) Value() string {
	if n == nil {
		return ""
	}
	if len(n.Children) > 0 && n.inner != "" {
		return n.inner
	}
	return n.Text
}

var namespacePrefixes = map[string]string{
	"http://search.yahoo.com/mrss/":               "media",
	"http://search.yahoo.com/mrss":                "media",
	"http://purl.org/rss/1.0/modules/content/":    "content",
	"http://purl.org/dc/elements/1.1/":            "dc",
	"http://www.w3.org/2005/Atom":                 "",
	"http://purl.org/rss/1.0/":                    "",
	"http://www.w3.org/1999/02/22-rdf-syntax-ns#": "rdf",
	"http://www.youtube.com/xml/schemas/2015":     "yt",
	"http://www.itunes.com/dtds/podcast-1.0.dtd":  "itunes",
}

var markupElements = map[string]bool{
	"title":           true,
	"description":     true,
	"summary":         true,
	"content":         true,
	"content:encoded": true,
}

func qualify(name xml.Name) string {
	prefix, known := namespacePrefixes[name.Space]
	if !known && !strings.Contains(name.Space, "/") {
		// undeclared prefixes survive as-is in non-strict mode
		prefix = name.Space
	}
	if prefix == "" {
		return name.Local
	}
	return prefix + ":" + name.Local
}

var declEncoding = regexp.MustCompile(`^(\x{FEFF})?\s*<\?xml[^>]*?encoding\s*=\s*["']([^"']+)["']`)

// toUTF8 transcodes a document whose declaration names a non-UTF-8
// charset and relabels the declaration, so byte offsets of the result can
// be used to slice inner markup.
func toUTF8(data []byte) []byte {
	m := declEncoding.FindSubmatchIndex(data)
	if m == nil {
		return data
	}
	label := string(data[m[4]:m[5]])
	enc, name := charset.Lookup(label)
	if enc == nil || name == "utf-8" {
		return data
	}

	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	m = declEncoding.FindSubmatchIndex(decoded)
	if m == nil {
		return data
	}
	out := make([]byte, 0, len(decoded))
	out = append(out, decoded[:m[4]]...)
	out = append(out, "UTF-8"...)
	out = append(out, decoded[m[5]:]...)
	return out
}

// decodeTree parses an XML document into a node tree rooted at its document element.
func decodeTree(data []byte) (*Node, error) {
	data = toUTF8(data)
	converted := false
	d := xml.NewDecoder(bytes.NewReader(data))
	// Non-strict mode repairs mismatched tags from unescaped HTML. AutoClose
	// stays off: the HTML void list contains "link".
	d.Strict = false
	d.Entity = xml.HTMLEntity
	d.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		converted = true
		return charset.NewReaderLabel(label, input)
	}

	type open struct {
		node       *Node
		innerStart int64
	}
	var stack []open
	var root *Node

	for {
		offset := d.InputOffset()
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Name: qualify(t.Name)}
			if len(t.Attr) > 0 {
				node.Attrs = make(map[string]string, len(t.Attr))
				for _, attr := range t.Attr {
					if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
						continue
					}
					node.Attrs[attr.Name.Local] = attr.Value
				}
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1].node
				parent.Children = append(parent.Children, node)
			} else if root == nil {
				root = node
			}
			stack = append(stack, open{node: node, innerStart: d.InputOffset()})
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !converted && len(top.node.Children) > 0 && markupElements[top.node.Name] &&
				top.innerStart <= offset && offset <= int64(len(data)) {
				top.node.inner = strings.TrimSpace(string(data[top.innerStart:offset]))
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].node.Text += string(t)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("failed to decode XML: no document element")
	}
	return root, nil
}

// entriesOf flattens RSS channel/item, RDF item and Atom entry collections
// into one ordered list.
func entriesOf(root *Node) []*Node {
	switch root.Name {
	case "rss":
		var entries []*Node
		for _, channel := range root.Get("channel") {
			entries = append(entries, channel.Get("item")...)
		}
		return entries
	case "rdf:RDF", "RDF":
		entries := []*Node(root.Get("item"))
		for _, channel := range root.Get("channel") {
			entries = append(entries, channel.Get("item")...)
		}
		return entries
	case "feed":
		return root.Get("entry")
	}
	return nil
}
