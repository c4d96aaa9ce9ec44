// Package image finds and stores the illustrative image of a feed entry.
package image

import (
	"context"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/feed-vault/app/feed"
)

// MinThumbnailBytes is the size below which a thumbnail check is treated
// as a placeholder image.
const MinThumbnailBytes = 5000

var (
	youtubeThumbnail = regexp.MustCompile(`^(https?://(?:img\.youtube\.com|i\d*\.ytimg\.com)/vi/[^/]+/)[\w-]+\.jpg(\?.*)?$`)
	imageExtensions  = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
		".webp": true, ".avif": true, ".svg": true, ".bmp": true,
	}
	thumbnailTiers = []string{"maxresdefault.jpg", "sddefault.jpg"}
	markupFields   = []string{"content:encoded", "content", "description", "summary"}
)

type Resolver struct {
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

func NewResolver(httpClient *http.Client, userAgent string, logger *slog.Logger) *Resolver {
	return &Resolver{
		httpClient: httpClient,
		userAgent:  userAgent,
		logger:     logger,
	}
}

// Resolve returns the best image URL for entry, or "" when none is found.
// Network failures fall through to the next source.
func (r *Resolver) Resolve(ctx context.Context, entry *feed.Node, pageURL string, fetchPage bool) string {
	found := r.fromEntry(ctx, entry)
	if found == "" && fetchPage && pageURL != "" {
		found = r.fromPage(ctx, pageURL)
	}
	if found == "" {
		return ""
	}
	return normalizeURL(found, pageURL)
}

func (r *Resolver) fromEntry(ctx context.Context, entry *feed.Node) string {
	for _, group := range entry.Get("media:group") {
		if thumb := group.Get("media:thumbnail").First().Attr("url"); thumb != "" {
			return r.UpgradeThumbnail(ctx, html.UnescapeString(thumb))
		}
	}

	if thumb := entry.Get("media:thumbnail").First().Attr("url"); thumb != "" {
		return thumb
	}

	for _, content := range entry.Get("media:content") {
		if u := content.Attr("url"); hasImageExtension(u) {
			return u
		}
	}

	for _, enclosure := range entry.Get("enclosure") {
		if strings.HasPrefix(strings.ToLower(enclosure.Attr("type")), "image/") && enclosure.Attr("url") != "" {
			return enclosure.Attr("url")
		}
	}

	for _, name := range markupFields {
		for _, node := range entry.Get(name) {
			if src := firstImage(node.Value()); src != "" {
				return src
			}
		}
	}
	return ""
}

// UpgradeThumbnail swaps a video thumbnail for the largest variant that
// is not a placeholder, keeping the original when no tier qualifies.
func (r *Resolver) UpgradeThumbnail(ctx context.Context, thumbURL string) string {
	m := youtubeThumbnail.FindStringSubmatch(thumbURL)
	if m == nil {
		return thumbURL
	}
	for _, tier := range thumbnailTiers {
		candidate := m[1] + tier
		if candidate == thumbURL {
			return thumbURL
		}
		if r.exists(ctx, candidate) {
			return candidate
		}
	}
	return thumbURL
}

func (r *Resolver) exists(ctx context.Context, candidate string) bool {
	resp, err := r.get(ctx, candidate)
	if err != nil {
		r.logger.Debug("Thumbnail check failed", "url", candidate, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	if resp.ContentLength >= 0 {
		return resp.ContentLength >= MinThumbnailBytes
	}
	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, MinThumbnailBytes))
	return err == nil && n >= MinThumbnailBytes
}

func (r *Resolver) fromPage(ctx context.Context, pageURL string) string {
	resp, err := r.get(ctx, pageURL)
	if err != nil {
		r.logger.Debug("Page fetch for image failed", "url", pageURL, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	for _, selector := range []string{
		`meta[property="og:image"]`,
		`meta[name="og:image"]`,
		`meta[name="twitter:image"]`,
		`meta[property="twitter:image"]`,
		`meta[name="twitter:image:src"]`,
	} {
		if content, ok := doc.Find(selector).First().Attr("content"); ok && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
	}
	return ""
}

func (r *Resolver) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)
	return r.httpClient.Do(req)
}

// firstImage returns the source of the first <img> in an HTML fragment.
func firstImage(fragment string) string {
	if !strings.Contains(fragment, "<img") {
		if !strings.Contains(fragment, "&lt;img") {
			return ""
		}
		fragment = html.UnescapeString(fragment)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	var src string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		for _, attr := range []string{"src", "data-src", "original-src"} {
			if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" && !strings.HasPrefix(v, "data:") {
				src = strings.TrimSpace(v)
				return false
			}
		}
		return true
	})
	return src
}

func hasImageExtension(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}

// normalizeURL unescapes ampersands, upgrades protocol-relative URLs and
// resolves relative ones against the item page.
func normalizeURL(raw, pageURL string) string {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), "&amp;", "&")
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() {
		return raw
	}
	base, err := url.Parse(pageURL)
	if err != nil || !base.IsAbs() {
		return raw
	}
	return base.ResolveReference(u).String()
}
