package webdav

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleMultistatus = `<?xml version="1.0" encoding="utf-8"?>
<D:multistatus xmlns:D="DAV:">
	<D:response>
		<D:href>%s</D:href>
		<D:propstat>
			<D:prop><D:resourcetype><D:collection/></D:resourcetype></D:prop>
			<D:status>HTTP/1.1 200 OK</D:status>
		</D:propstat>
	</D:response>
	<D:response>
		<D:href>%schild/</D:href>
		<D:propstat>
			<D:prop><D:resourcetype><D:collection/></D:resourcetype></D:prop>
			<D:status>HTTP/1.1 200 OK</D:status>
		</D:propstat>
	</D:response>
</D:multistatus>`

func TestClientListDirectoryResolvesAndFiltersSelf(t *testing.T) {
	a := assert.New(t)
	var gotDepth, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotDepth = r.Header.Get("Depth")
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		w.WriteHeader(207)
		_, _ = w.Write([]byte(fmt.Sprintf(sampleMultistatus, "/dir/", "/dir/")))
	}))
	defer srv.Close()

	base, err := url.Parse(srv.URL + "/dir/")
	a.NoError(err)

	c := NewClient()
	listing, _, err := c.ListDirectory(context.Background(), base)
	a.NoError(err)
	a.Equal("PROPFIND", gotMethod)
	a.Equal("1", gotDepth)
	if a.Len(listing.Directories, 1, "self-reference should be filtered") {
		a.Equal(srv.URL+"/dir/child/", listing.Directories[0].String())
	}
	a.Empty(listing.Files)
}

func TestClientListDirectoryBadStatusIsError(t *testing.T) {
	a := assert.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	base, _ := url.Parse(srv.URL + "/")
	c := NewClient()
	_, _, err := c.ListDirectory(context.Background(), base)
	a.Error(err)
}

func TestClientGetFileRedirectReportsLocation(t *testing.T) {
	a := assert.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.Equal(http.MethodHead, r.Method)
		w.Header().Set("Location", "https://elsewhere.example/target")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	target, _ := url.Parse(srv.URL + "/a/c")
	c := NewClient()
	redirect, _, err := c.GetFileRedirect(context.Background(), target)
	a.NoError(err)
	if a.NotNil(redirect) {
		a.Equal("https://elsewhere.example/target", redirect.String())
	}
}

// spec.md §4.4 requires Location to parse as an absolute URL; a
// relative reference is a header-decode error, not silently resolved
// against the request URL.
func TestClientGetFileRedirectRelativeLocationIsError(t *testing.T) {
	a := assert.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/elsewhere")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	target, _ := url.Parse(srv.URL + "/a/c")
	c := NewClient()
	redirect, _, err := c.GetFileRedirect(context.Background(), target)
	a.Error(err)
	a.Nil(redirect)
}

func TestClientGetFileRedirectNoneWhenNotARedirect(t *testing.T) {
	a := assert.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	target, _ := url.Parse(srv.URL + "/b")
	c := NewClient()
	redirect, _, err := c.GetFileRedirect(context.Background(), target)
	a.NoError(err)
	a.Nil(redirect)
}
