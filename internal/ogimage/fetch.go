package ogimage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"html"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	appLog "improvfest/internal/log"
)

// maxPageBytes caps how much of a festival webpage is read looking for meta tags.
const maxPageBytes = 2 << 20

var (
	metaTagRe = regexp.MustCompile(`(?is)<meta\s[^>]*>`)
	ogPropRe  = regexp.MustCompile(`(?i)\b(?:property|name)\s*=\s*["']og:image(?::url|:secure_url)?["']`)
	contentRe = regexp.MustCompile(`(?i)\bcontent\s*=\s*(?:"([^"]*)"|'([^']*)')`)
)

// cacheEntry holds HTTP cache metadata and the last extracted image for one page.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	Image        string    `json:"image,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// pageFetcher downloads festival webpages with conditional requests
// (ETag / Last-Modified) backed by a small disk cache. With an empty cacheDir
// every request goes to the network.
type pageFetcher struct {
	client   *http.Client
	cacheDir string
}

func newPageFetcher(client *http.Client, cacheDir string) *pageFetcher {
	return &pageFetcher{client: client, cacheDir: cacheDir}
}

// ogImage returns the raw og:image content of pageURL.
func (f *pageFetcher) ogImage(ctx context.Context, pageURL string) (string, error) {
	if pageURL == "" {
		return "", errors.New("page URL is empty")
	}

	var (
		cachePath string
		meta      cacheEntry
		hasMeta   bool
	)
	if f.cacheDir != "" {
		cachePath = f.cachePathForURL(pageURL)
		if m, err := f.loadCacheMeta(cachePath); err == nil {
			meta, hasMeta = m, true
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if hasMeta {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if hasMeta && meta.Image != "" {
			appLog.Debug("page fetch failed, using cached image", "url", redactURL(pageURL), "err", err)
			return meta.Image, nil
		}
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
		if readErr != nil {
			return "", readErr
		}
		img := ExtractOGImage(body)

		if cachePath != "" {
			newMeta := cacheEntry{
				URL:          pageURL,
				ETag:         resp.Header.Get("ETag"),
				LastModified: resp.Header.Get("Last-Modified"),
				Image:        img,
			}
			if err := f.saveCacheMeta(cachePath, newMeta); err != nil {
				appLog.Error("page cache save failed", err, "url", redactURL(pageURL))
			}
		}
		return img, nil

	case http.StatusNotModified:
		if !hasMeta {
			return "", errors.New("received 304 Not Modified but no cache entry available")
		}
		return meta.Image, nil

	default:
		if hasMeta && meta.Image != "" {
			return meta.Image, nil
		}
		return "", errors.New(resp.Status)
	}
}

// ExtractOGImage returns the content of the first og:image meta tag in page,
// HTML-unescaped, or "" if there is none.
func ExtractOGImage(page []byte) string {
	for _, tag := range metaTagRe.FindAll(page, -1) {
		if !ogPropRe.Match(tag) {
			continue
		}
		m := contentRe.FindSubmatch(tag)
		if m == nil {
			continue
		}
		v := m[1]
		if len(v) == 0 {
			v = m[2]
		}
		if len(v) == 0 {
			continue
		}
		return html.UnescapeString(string(v))
	}
	return ""
}

func (f *pageFetcher) cachePathForURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	// First 16 hex chars are plenty for a few hundred festival sites.
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *pageFetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *pageFetcher) saveCacheMeta(cachePath string, meta cacheEntry) error {
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}
