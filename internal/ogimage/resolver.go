package ogimage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	appLog "improvfest/internal/log"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultGraphBaseURL = "https://graph.facebook.com"
)

var errNoFacebookToken = errors.New("facebook access token not configured")

// Options configures an HTTPResolver.
type Options struct {
	// Timeout bounds each individual lookup. Zero means 10s.
	Timeout time.Duration

	// CacheDir enables the per-page conditional-request cache when non-empty.
	CacheDir string

	// FacebookToken is the Graph API access token. Without it the Facebook
	// fallback is skipped.
	FacebookToken string

	// GraphBaseURL overrides the Graph API endpoint (tests).
	GraphBaseURL string

	// Client overrides the HTTP client. Its Timeout is left untouched.
	Client *http.Client
}

// HTTPResolver finds a festival preview image by scraping the og:image tag of
// its webpage, falling back to the profile picture of its Facebook page.
type HTTPResolver struct {
	timeout       time.Duration
	client        *http.Client
	graphClient   *http.Client
	pages         *pageFetcher
	facebookToken string
	graphBaseURL  string
}

func NewHTTPResolver(opts Options) *HTTPResolver {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.GraphBaseURL == "" {
		opts.GraphBaseURL = defaultGraphBaseURL
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	graphClient := *client
	graphClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &HTTPResolver{
		timeout:       opts.Timeout,
		client:        client,
		graphClient:   &graphClient,
		pages:         newPageFetcher(client, opts.CacheDir),
		facebookToken: opts.FacebookToken,
		graphBaseURL:  strings.TrimRight(opts.GraphBaseURL, "/"),
	}
}

// Resolve returns the first image found via webpage, then facebook. Failures
// at either step are logged and treated as "no image".
func (r *HTTPResolver) Resolve(ctx context.Context, webpage, facebook string) string {
	webpage = strings.TrimSpace(webpage)
	facebook = strings.TrimSpace(facebook)

	if webpage != "" {
		img, err := r.OGImage(ctx, webpage)
		if err != nil {
			appLog.Debug("og:image lookup failed", "url", redactURL(webpage), "err", err)
		} else if img != "" {
			return img
		}
	}

	if facebook != "" {
		img, err := r.FacebookImage(ctx, facebook)
		if err != nil {
			appLog.Debug("facebook picture lookup failed", "url", redactURL(facebook), "err", err)
		} else if img != "" {
			return img
		}
	}

	return ""
}

// OGImage fetches pageURL and returns its og:image as an absolute URL, or ""
// when the page has none.
func (r *HTTPResolver) OGImage(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	img, err := r.pages.ogImage(ctx, pageURL)
	if err != nil || img == "" {
		return "", err
	}
	return absoluteURL(pageURL, img), nil
}

// FacebookImage asks the Graph API for the large picture of the page named
// by the last path segment of facebookURL and returns the URL it redirects to.
// The redirect is not followed.
func (r *HTTPResolver) FacebookImage(ctx context.Context, facebookURL string) (string, error) {
	if r.facebookToken == "" {
		return "", errNoFacebookToken
	}
	id := FacebookID(facebookURL)
	if id == "" {
		return "", fmt.Errorf("no page id in %q", redactURL(facebookURL))
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("type", "large")
	q.Set("access_token", r.facebookToken)
	endpoint := r.graphBaseURL + "/" + url.PathEscape(id) + "/picture?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.graphClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 || resp.StatusCode > 399 {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return "", errors.New(resp.Status)
		}
		return "", errors.New("picture endpoint did not redirect")
	}

	// The Graph URL carries the token, so a redirect back to it is unusable.
	loc, err := resp.Location()
	if err != nil {
		return "", fmt.Errorf("picture redirect: %w", err)
	}
	graph, _ := url.Parse(r.graphBaseURL)
	if graph != nil && loc.Host == graph.Host {
		return "", errors.New("picture endpoint redirected to itself")
	}
	return loc.String(), nil
}

// FacebookID extracts the page identifier from a Facebook URL: the last
// non-empty path segment, without query or fragment.
func FacebookID(facebookURL string) string {
	s := strings.TrimSpace(facebookURL)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if u, err := url.Parse(s); err == nil && u.Path != "" {
		s = u.Path
	}
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

func absoluteURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// redactURL hides everything after the host for logging purposes.
//
//	https://example.com/path?token=abcd -> https://example.com/...(redacted)
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "url://...(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host + redactedSuffix
}
