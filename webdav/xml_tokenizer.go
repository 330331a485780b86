package webdav

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

// TokenKind identifies which of Token's five cases a value holds.
type TokenKind uint8

const (
	OpenStd TokenKind = iota
	CloseStd
	OpenExt
	CloseExt
	Text
)

// Token is the flat, namespace-tagged stream tokenize produces: an open
// or close tag in the standard DAV: namespace (or unqualified — spec.md
// §3 treats those as equivalent), an open or close tag in some foreign
// namespace, or a run of character content. Tokens are value-equal,
// which is the driving primitive the parser's lookahead relies on.
type Token struct {
	Kind      TokenKind
	Name      string
	Namespace string // only meaningful for OpenExt/CloseExt
	Content   string // only meaningful for Text
}

func openToken(name, namespace string) Token {
	if namespace == "" || namespace == davNamespace {
		return Token{Kind: OpenStd, Name: name}
	}
	return Token{Kind: OpenExt, Name: name, Namespace: namespace}
}

func closeToken(name, namespace string) Token {
	if namespace == "" || namespace == davNamespace {
		return Token{Kind: CloseStd, Name: name}
	}
	return Token{Kind: CloseExt, Name: name, Namespace: namespace}
}

// tokenize streams blob through an XML reader configured per spec.md
// §4.5: it forbids multiple root elements (encoding/xml's Decoder, left
// to itself, happily keeps decoding sibling top-level elements, so the
// loop below tracks root-level depth itself and errors the moment a
// second top-level element starts after the first has closed), honors
// an explicit override charset when supplied (ignoring any in-document
// encoding declaration), and otherwise trusts the in-document encoding
// declaration, decoding the encoding it names via
// golang.org/x/net/html/charset.NewReaderLabel.
func tokenize(blob []byte, overrideCharset string) ([]Token, error) {
	dec := xml.NewDecoder(bytes.NewReader(blob))
	if overrideCharset != "" {
		r, err := charset.NewReaderLabel(overrideCharset, bytes.NewReader(blob))
		if err != nil {
			return nil, &XMLTokenizeError{cause: errors.Wrapf(err, "unrecognized charset %q", overrideCharset)}
		}
		dec = xml.NewDecoder(r)
		// r already yields UTF-8; the declared encoding is not applied again.
		dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }
	} else {
		dec.CharsetReader = charset.NewReaderLabel
	}
	dec.Strict = true

	var tokens []Token
	depth := 0
	rootClosed := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &XMLTokenizeError{cause: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 && rootClosed {
				return nil, &XMLTokenizeError{cause: ErrMultipleRootElements}
			}
			depth++
			tokens = append(tokens, openToken(t.Name.Local, t.Name.Space))
		case xml.EndElement:
			depth--
			if depth == 0 {
				rootClosed = true
			}
			tokens = append(tokens, closeToken(t.Name.Local, t.Name.Space))
		case xml.CharData:
			if s := string(t); len(bytesTrimSpace(s)) > 0 {
				tokens = append(tokens, Token{Kind: Text, Content: s})
			}
		case xml.ProcInst:
			// encoding/xml surfaces the leading <?xml version="1.0"?>
			// declaration itself as a ProcInst with Target "xml"; that's the
			// document's encoding declaration, not a processing instruction
			// in the spec.md §4.5 sense, so it is not an error.
			if t.Target == "xml" {
				continue
			}
			return nil, &XMLTokenizeError{cause: ErrProcessingInstruction}
		case xml.Comment, xml.Directive:
			// silently dropped, per spec.md §4.5
		}
	}
	return tokens, nil
}

func bytesTrimSpace(s string) string {
	return string(bytes.TrimSpace([]byte(s)))
}
