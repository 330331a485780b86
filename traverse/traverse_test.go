package traverse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/webdavcrawl/batchdav/common"
	"github.com/webdavcrawl/batchdav/webdav"
)

// mockServer maps a request path to the multistatus body the mock
// server should answer with for a PROPFIND against it.
type mockServer struct {
	propfind map[string]string
	redirect map[string]string // path -> Location; absent means no redirect
}

func (m mockServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "PROPFIND":
			body, ok := m.propfind[r.URL.Path]
			if !ok {
				t.Errorf("unexpected PROPFIND to %s", r.URL.Path)
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "text/xml; charset=utf-8")
			w.WriteHeader(207)
			_, _ = w.Write([]byte(body))
		case http.MethodHead:
			if loc, ok := m.redirect[r.URL.Path]; ok {
				w.Header().Set("Location", loc)
				w.WriteHeader(http.StatusFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}
}

func response(href string, isDir bool) string {
	rtype := ""
	if isDir {
		rtype = "<D:collection/>"
	}
	return `<D:response>
		<D:href>` + href + `</D:href>
		<D:propstat>
			<D:prop><D:resourcetype>` + rtype + `</D:resourcetype></D:prop>
			<D:status>HTTP/1.1 200 OK</D:status>
		</D:propstat>
	</D:response>`
}

func multistatus(responses ...string) string {
	out := `<?xml version="1.0" encoding="utf-8"?><D:multistatus xmlns:D="DAV:">`
	for _, r := range responses {
		out += r
	}
	return out + `</D:multistatus>`
}

// TestTraverseEndToEnd exercises the mock tree from spec.md §8:
// / -> [/a/, /b]; /a/ -> [/a/c]; /b -> no redirect; /a/c -> redirects
// elsewhere. With workers=2 it must yield exactly four reports and
// TraversalReport.Requests() == 4.
func TestTraverseEndToEnd(t *testing.T) {
	a := assert.New(t)
	m := mockServer{
		propfind: map[string]string{
			"/":   multistatus(response("/", true), response("/a/", true), response("/b", false)),
			"/a/": multistatus(response("/a/", true), response("/a/c", false)),
		},
		redirect: map[string]string{},
	}
	srv := httptest.NewServer(m.handler(t))
	defer srv.Close()
	// Location must be an absolute URL (spec.md §4.4); the redirect
	// map is filled in only once srv.URL is known.
	m.redirect["/a/c"] = srv.URL + "/elsewhere"

	base, err := url.Parse(srv.URL + "/")
	a.NoError(err)

	client := webdav.NewClient()
	report, err := Traverse(context.Background(), client, base, 2, true, common.NewNopLogger())
	a.NoError(err)

	a.Equal(4, report.Requests())
	a.Len(report.DirectoryRequestTimes, 2)
	a.Len(report.FileRequestTimes, 2)
}

func TestTraverseStopsOnFirstError(t *testing.T) {
	a := assert.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	base, _ := url.Parse(srv.URL + "/")
	client := webdav.NewClient()
	_, err := Traverse(context.Background(), client, base, 1, true, common.NewNopLogger())
	a.Error(err)
}
