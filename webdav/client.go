package webdav

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/webdavcrawl/batchdav/common"
)

// propfindBody is the fixed PROPFIND request body: it asks for exactly
// one property, resourcetype, which is all parseMultistatus ever
// inspects (spec.md §4.4/§4.6).
const propfindBody = `<?xml version="1.0" encoding="utf-8"?>` +
	`<D:propfind xmlns:D="DAV:"><D:prop><D:resourcetype/></D:prop></D:propfind>`

// Client issues the two requests a crawl needs against one WebDAV
// server: PROPFIND to list a collection, HEAD to probe whether a file
// is a redirect. It never follows redirects itself — every 3xx is
// surfaced to the caller as data (a Location to record) or, for
// PROPFIND, as an error, matching spec.md §4.4.
type Client struct {
	http *http.Client
}

// userAgentTransport sets the User-Agent on every outgoing request,
// the Go analog of the original's reqwest::ClientBuilder::user_agent.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// NewClient builds a Client with redirects disabled and the batchdav
// User-Agent attached to every request.
func NewClient() *Client {
	return &Client{
		http: &http.Client{
			Transport: &userAgentTransport{base: http.DefaultTransport, userAgent: common.UserAgent()},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// ListDirectory issues a Depth:1 PROPFIND for target's resourcetype
// against every immediate child, parses the multistatus body, resolves
// every href onto target, and strips target's own entry out of
// Directories (self-reference filtering, spec.md §4.4). Only the HTTP
// round trip is timed, not the parse.
func (c *Client) ListDirectory(ctx context.Context, target *url.URL) (DirectoryListing[*url.URL], time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, "PROPFIND", target.String(), strings.NewReader(propfindBody))
	if err != nil {
		return DirectoryListing[*url.URL]{}, 0, errors.Wrap(err, "building PROPFIND request")
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("Depth", "1")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return DirectoryListing[*url.URL]{}, 0, errors.Wrapf(err, "PROPFIND %s", target)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		return DirectoryListing[*url.URL]{}, elapsed, errors.Wrapf(err, "reading PROPFIND response body for %s", target)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return DirectoryListing[*url.URL]{}, elapsed, errors.Errorf("PROPFIND %s: unexpected status %s", target, resp.Status)
	}

	listing, err := parseResponseBody(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return DirectoryListing[*url.URL]{}, elapsed, err
	}

	resolved, err := resolveListing(listing, target)
	if err != nil {
		return DirectoryListing[*url.URL]{}, elapsed, err
	}
	return resolved, elapsed, nil
}

// GetFileRedirect issues a HEAD request against target and reports the
// URL in its Location header, or nil if the response has no Location
// header.
// Per spec.md §4.4, Location must parse as an absolute URL; a relative
// reference is a header-decode error, not silently resolved against
// target.
func (c *Client) GetFileRedirect(ctx context.Context, target *url.URL) (*url.URL, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target.String(), nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "building HEAD request")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, errors.Wrapf(err, "HEAD %s", target)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, elapsed, errors.Errorf("HEAD %s: unexpected status %s", target, resp.Status)
	}

	loc := resp.Header.Get("Location")
	if loc == "" {
		return nil, elapsed, nil
	}
	u, err := url.Parse(loc)
	if err != nil {
		return nil, elapsed, errors.Wrapf(err, "Location header value %q is not a valid URL", loc)
	}
	if !u.IsAbs() {
		return nil, elapsed, errors.Errorf("Location header value %q is not an absolute URL", loc)
	}
	return u, elapsed, nil
}

// parseResponseBody extracts an explicit charset from contentType, if
// any, and runs the tokenize/parse pipeline over body.
func parseResponseBody(body []byte, contentType string) (DirectoryListing[string], error) {
	var overrideCharset string
	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			overrideCharset = params["charset"]
		}
	}
	tokens, err := tokenize(bytes.TrimSpace(body), overrideCharset)
	if err != nil {
		return DirectoryListing[string]{}, err
	}
	return parseMultistatus(tokens)
}

// resolveListing joins every href in listing onto base, then drops any
// directory entry that resolves back to base itself (modulo a trailing
// slash), per spec.md §3's Directory Listing invariant.
func resolveListing(listing DirectoryListing[string], base *url.URL) (DirectoryListing[*url.URL], error) {
	var out DirectoryListing[*url.URL]
	for _, href := range listing.Directories {
		u, err := resolveHref(href, base)
		if err != nil {
			return DirectoryListing[*url.URL]{}, err
		}
		if isSelfReference(u, base) {
			continue
		}
		out.Directories = append(out.Directories, u)
	}
	for _, href := range listing.Files {
		u, err := resolveHref(href, base)
		if err != nil {
			return DirectoryListing[*url.URL]{}, err
		}
		out.Files = append(out.Files, u)
	}
	return out, nil
}

func resolveHref(href string, base *url.URL) (*url.URL, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return nil, errors.Wrapf(err, "href %q is not a valid URL", href)
	}
	return base.ResolveReference(ref), nil
}

func isSelfReference(candidate, base *url.URL) bool {
	return strings.TrimSuffix(candidate.String(), "/") == strings.TrimSuffix(base.String(), "/")
}
