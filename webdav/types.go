// Package webdav implements the client-facing half of a WebDAV crawl:
// issuing PROPFIND/HEAD requests and parsing the PROPFIND response body.
//
// Parsing is deliberately a two-stage pipeline — tokenize (xml_tokenizer.go)
// then parse (parser.go) — rather than a single encoding/xml struct
// decode, because the grammar in parser.go's doc comment requires
// sibling-order independence, foreign-namespace tolerance, and
// exactly-once cardinality checks that a declarative struct mapping
// cannot express.
package webdav

import "github.com/pkg/errors"

// davNamespace is the XML namespace for standard WebDAV elements.
const davNamespace = "DAV:"

// DirectoryListing is a pair of ordered sequences of child resources
// belonging to one collection: directories (child collections) and
// files (everything else). T is string for raw hrefs (the parser's
// output) and *url.URL once the client has resolved them against the
// base URL.
type DirectoryListing[T any] struct {
	Directories []T
	Files       []T
}

// XMLTokenizeError is returned by tokenize when the XML blob cannot be
// streamed into a token sequence at all: malformed XML, a disallowed
// processing instruction, or an unsupported encoding declaration.
type XMLTokenizeError struct {
	cause error
}

func (e *XMLTokenizeError) Error() string {
	return "error tokenizing XML: " + e.cause.Error()
}

func (e *XMLTokenizeError) Cause() error { return e.cause }

// ErrProcessingInstruction is the XMLTokenizeError cause used when the
// document contains a processing instruction, which spec.md §4.5
// disallows outright.
var ErrProcessingInstruction = errors.New("unexpected XML processing instruction encountered")

// ErrMultipleRootElements is the XMLTokenizeError cause used when a
// second top-level element starts after the first has closed, which
// spec.md §4.5's "forbid multiple root elements" rule disallows.
var ErrMultipleRootElements = errors.New("document has more than one root element")

// ParseError is returned by parseMultistatus when the token stream does
// not match the grammar (mismatched/duplicate standard elements,
// malformed extension nesting, missing required children). Per
// spec.md §7 the message is intentionally opaque — callers that need
// detail should look at the href-naming BadStatusError instead.
type ParseError struct {
	cause error
}

func (e *ParseError) Error() string { return "XML response is not valid" }
func (e *ParseError) Cause() error  { return e.cause }

func newParseError(cause error) *ParseError { return &ParseError{cause: cause} }

// BadStatusError is returned when a response's status line isn't
// "HTTP/<anything> 200 ...", naming the offending href and status text
// per spec.md §4.6/§8.
type BadStatusError struct {
	Href   string
	Status string
}

func (e *BadStatusError) Error() string {
	return "resourcetype status for " + e.Href + " is not OK: " + e.Status
}
