package image

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/lysyi3m/feed-vault/app/vault"
)

const (
	defaultExtension = ".jpg"
	maxImageBytes    = 50 << 20
)

var contentTypeExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/jpg":     ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/avif":    ".avif",
	"image/svg+xml": ".svg",
	"image/bmp":     ".bmp",
}

type Downloader struct {
	httpClient *http.Client
	userAgent  string
	store      vault.Storage
	logger     *slog.Logger
}

func NewDownloader(httpClient *http.Client, userAgent string, store vault.Storage, logger *slog.Logger) *Downloader {
	return &Downloader{
		httpClient: httpClient,
		userAgent:  userAgent,
		store:      store,
		logger:     logger,
	}
}

// Reference renders a vault path as an internal link.
func Reference(p string) string {
	return "[[" + p + "]]"
}

// Download stores the image at imageURL as folder/baseName.<ext> and returns
// its reference. An existing file with the URL's extension is reused without
// a network call. Any failure returns imageURL unchanged.
func (d *Downloader) Download(ctx context.Context, imageURL, folder, baseName string) string {
	if imageURL == "" || strings.HasPrefix(imageURL, "[[") {
		return imageURL
	}

	guessed := path.Join(folder, baseName+extensionFromURL(imageURL, defaultExtension))
	if exists, err := d.store.Exists(guessed); err == nil && exists {
		return Reference(guessed)
	}

	dest, err := d.fetch(ctx, imageURL, folder, baseName)
	if err != nil {
		d.logger.Warn("Image download failed, keeping remote URL", "url", imageURL, "error", err)
		return imageURL
	}
	return Reference(dest)
}

func (d *Downloader) fetch(ctx context.Context, imageURL, folder, baseName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty image body")
	}

	ext := extensionFromContentType(resp.Header.Get("Content-Type"))
	if ext == "" {
		ext = extensionFromURL(imageURL, defaultExtension)
	}
	dest := path.Join(folder, baseName+ext)

	if folder != "" {
		if err := d.store.MkdirAll(folder); err != nil {
			return "", err
		}
	}
	if err := d.store.WriteBinary(dest, data); err != nil {
		return "", err
	}

	d.logger.Debug("Image downloaded", "url", imageURL, "path", dest, "size", humanize.Bytes(uint64(len(data))))
	return dest, nil
}

func extensionFromContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return contentTypeExtensions[strings.ToLower(mediaType)]
}

func extensionFromURL(raw, fallback string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fallback
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == ".jpeg" {
		return ".jpg"
	}
	if imageExtensions[ext] {
		return ext
	}
	return fallback
}
