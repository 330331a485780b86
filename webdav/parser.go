package webdav

import "strings"

// parseMultistatus recognizes the following grammar over a flat []Token,
// reproduced from spec.md §4.6 (each production an unordered, repeatable
// alternation of its listed children, exactly as the RFC allows even
// though its DTD suggests a fixed order):
//
//	multistatus := OpenStd("multistatus") ( response | responsedescription | ext )* CloseStd("multistatus")
//	response    := OpenStd("response") ( href | propstat | responsedescription | location | ext )* CloseStd("response")
//	href        := OpenStd("href") Text CloseStd("href")
//	propstat    := OpenStd("propstat") ( prop | status | responsedescription | ext )* CloseStd("propstat")
//	prop        := OpenStd("prop") resourcetype ext* CloseStd("prop")
//	resourcetype := OpenStd("resourcetype") collection? CloseStd("resourcetype")
//	collection  := OpenStd("collection") CloseStd("collection")
//	status      := OpenStd("status") Text CloseStd("status")
//	responsedescription, location := a standard element, skipped without
//	  being inspected (neither affects directory/file classification)
//
// where OpenStd/CloseStd("name") stand for a matched standard-namespace
// tag pair and "ext" stands for any OpenExt/CloseExt pair together with
// whatever it nests (extension content is skipped wholesale, never
// inspected). Every production is one function taking *[]Token and
// advancing it by slicing off the front as it consumes — the Go analog
// of the original's TokenStream cursor. Extension elements may appear
// anywhere a production allows one, in any order relative to each other
// and relative to standard siblings, and are recursively skipped without
// being inspected for well-formedness beyond balanced open/close pairs.
// href and propstat may likewise appear in any order within response,
// and prop/status may appear in any order within propstat — the RFC's
// own "order-independent" allowance (spec.md §4.6).
//
// A resourcetype without a nested collection means "this is a file";
// spec.md treats any other content of resourcetype as an extension and
// ignores it for the purpose of the directory/file classification.
type parsedEntry struct {
	href       string
	status     string
	isDirectory bool
}

// parseMultistatus also enforces, after the grammar matches, that every
// response's status line reads "HTTP/<version> 200 ..." — anything else
// fails the whole parse with a BadStatusError naming the offending href,
// per spec.md §7/§8. That check intentionally isn't part of the grammar
// above: it's a semantic validation over an already-well-formed parse
// tree, not a syntax rule.
func parseMultistatus(tokens []Token) (DirectoryListing[string], error) {
	t := tokens
	if err := expectOpenStd(&t, "multistatus"); err != nil {
		return DirectoryListing[string]{}, newParseError(err)
	}

	var entries []parsedEntry
	for {
		if peekCloseStd(t, "multistatus") {
			break
		}
		if peekOpenExt(t) {
			if err := skipExtension(&t); err != nil {
				return DirectoryListing[string]{}, newParseError(err)
			}
			continue
		}
		if peekOpenStd(t, "responsedescription") {
			if err := skipBalancedStd(&t); err != nil {
				return DirectoryListing[string]{}, newParseError(err)
			}
			continue
		}
		if !peekOpenStd(t, "response") {
			return DirectoryListing[string]{}, newParseError(errUnexpectedToken(t, "response, responsedescription, extension, or end of multistatus"))
		}
		entry, err := parseResponse(&t)
		if err != nil {
			return DirectoryListing[string]{}, newParseError(err)
		}
		entries = append(entries, entry)
	}

	if err := expectCloseStd(&t, "multistatus"); err != nil {
		return DirectoryListing[string]{}, newParseError(err)
	}
	if len(t) != 0 {
		return DirectoryListing[string]{}, newParseError(errTrailingTokens(t))
	}

	var listing DirectoryListing[string]
	for _, e := range entries {
		if !statusIsOK(e.status) {
			return DirectoryListing[string]{}, &BadStatusError{Href: e.href, Status: e.status}
		}
		if e.isDirectory {
			listing.Directories = append(listing.Directories, e.href)
		} else {
			listing.Files = append(listing.Files, e.href)
		}
	}
	return listing, nil
}

// statusIsOK reports whether s looks like "HTTP/<version> 200 <reason>":
// a whitespace-separated status line whose first word starts with
// "HTTP/" and whose second word is exactly "200".
func statusIsOK(s string) bool {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return false
	}
	return strings.HasPrefix(fields[0], "HTTP/") && fields[1] == "200"
}

// parseResponse accepts href, propstat, responsedescription, and
// location in any order and any number of times (spec.md §4.6's
// order-independence rule), enforcing only the cardinalities spec.md
// §4.6 actually names: exactly one href, exactly one propstat.
// responsedescription and location are recognized but not otherwise
// inspected — neither affects directory/file classification.
func parseResponse(t *[]Token) (parsedEntry, error) {
	if err := expectOpenStd(t, "response"); err != nil {
		return parsedEntry{}, err
	}

	var href *string
	var propstat *struct {
		isDirectory bool
		status      string
	}
	for {
		if peekCloseStd(*t, "response") {
			break
		}
		if peekOpenExt(*t) {
			if err := skipExtension(t); err != nil {
				return parsedEntry{}, err
			}
			continue
		}
		switch {
		case peekOpenStd(*t, "href"):
			if href != nil {
				return parsedEntry{}, errDuplicate("href")
			}
			h, err := parseHref(t)
			if err != nil {
				return parsedEntry{}, err
			}
			href = &h
		case peekOpenStd(*t, "propstat"):
			if propstat != nil {
				return parsedEntry{}, errDuplicate("propstat")
			}
			isDir, status, err := parsePropstat(t)
			if err != nil {
				return parsedEntry{}, err
			}
			propstat = &struct {
				isDirectory bool
				status      string
			}{isDir, status}
		case peekOpenStd(*t, "responsedescription"), peekOpenStd(*t, "location"):
			if err := skipBalancedStd(t); err != nil {
				return parsedEntry{}, err
			}
		default:
			return parsedEntry{}, errUnexpectedToken(*t, "href, propstat, responsedescription, location, extension, or end of response")
		}
	}

	if err := expectCloseStd(t, "response"); err != nil {
		return parsedEntry{}, err
	}
	if href == nil {
		return parsedEntry{}, errMissing("href")
	}
	if propstat == nil {
		return parsedEntry{}, errMissing("propstat")
	}
	return parsedEntry{href: *href, status: propstat.status, isDirectory: propstat.isDirectory}, nil
}

func parseHref(t *[]Token) (string, error) {
	if err := expectOpenStd(t, "href"); err != nil {
		return "", err
	}
	content, err := expectText(t)
	if err != nil {
		return "", err
	}
	if err := expectCloseStd(t, "href"); err != nil {
		return "", err
	}
	return content, nil
}

func parsePropstat(t *[]Token) (isDirectory bool, status string, err error) {
	if err := expectOpenStd(t, "propstat"); err != nil {
		return false, "", err
	}

	var prop *bool
	var statusText *string
	for {
		if peekCloseStd(*t, "propstat") {
			break
		}
		if peekOpenExt(*t) {
			if err := skipExtension(t); err != nil {
				return false, "", err
			}
			continue
		}
		switch {
		case peekOpenStd(*t, "prop"):
			if prop != nil {
				return false, "", errDuplicate("prop")
			}
			isDir, err := parseProp(t)
			if err != nil {
				return false, "", err
			}
			prop = &isDir
		case peekOpenStd(*t, "status"):
			if statusText != nil {
				return false, "", errDuplicate("status")
			}
			s, err := parseStatus(t)
			if err != nil {
				return false, "", err
			}
			statusText = &s
		case peekOpenStd(*t, "responsedescription"):
			if err := skipBalancedStd(t); err != nil {
				return false, "", err
			}
		default:
			return false, "", errUnexpectedToken(*t, "prop, status, responsedescription, extension, or end of propstat")
		}
	}

	if err := expectCloseStd(t, "propstat"); err != nil {
		return false, "", err
	}
	if prop == nil {
		return false, "", errMissing("prop")
	}
	if statusText == nil {
		return false, "", errMissing("status")
	}
	return *prop, *statusText, nil
}

func parseProp(t *[]Token) (isDirectory bool, err error) {
	if err := expectOpenStd(t, "prop"); err != nil {
		return false, err
	}

	var resourcetype *bool
	for {
		if peekCloseStd(*t, "prop") {
			break
		}
		if peekOpenExt(*t) {
			if err := skipExtension(t); err != nil {
				return false, err
			}
			continue
		}
		if !peekOpenStd(*t, "resourcetype") {
			return false, errUnexpectedToken(*t, "resourcetype, extension, or end of prop")
		}
		if resourcetype != nil {
			return false, errDuplicate("resourcetype")
		}
		isDir, err := parseResourcetype(t)
		if err != nil {
			return false, err
		}
		resourcetype = &isDir
	}

	if err := expectCloseStd(t, "prop"); err != nil {
		return false, err
	}
	if resourcetype == nil {
		return false, errMissing("resourcetype")
	}
	return *resourcetype, nil
}

func parseResourcetype(t *[]Token) (isDirectory bool, err error) {
	if err := expectOpenStd(t, "resourcetype"); err != nil {
		return false, err
	}

	seenCollection := false
	isDir := false
	for {
		if peekCloseStd(*t, "resourcetype") {
			break
		}
		if peekOpenStd(*t, "collection") {
			if seenCollection {
				return false, errDuplicate("collection")
			}
			if err := expectOpenStd(t, "collection"); err != nil {
				return false, err
			}
			if err := expectCloseStd(t, "collection"); err != nil {
				return false, err
			}
			seenCollection = true
			isDir = true
			continue
		}
		if peekOpenExt(*t) {
			if err := skipExtension(t); err != nil {
				return false, err
			}
			continue
		}
		// Any other standard-namespace resource type marker is treated
		// as an extension to the file/directory distinction: skip its
		// single open/close pair without recursing into children.
		if peekOpenStd(*t, "") {
			if err := skipBalancedStd(t); err != nil {
				return false, err
			}
			continue
		}
		return false, errUnexpectedToken(*t, "collection, extension, or end of resourcetype")
	}

	if err := expectCloseStd(t, "resourcetype"); err != nil {
		return false, err
	}
	return isDir, nil
}

func parseStatus(t *[]Token) (string, error) {
	if err := expectOpenStd(t, "status"); err != nil {
		return "", err
	}
	content, err := expectText(t)
	if err != nil {
		return "", err
	}
	if err := expectCloseStd(t, "status"); err != nil {
		return "", err
	}
	return content, nil
}

// skipExtension consumes one OpenExt and everything up to and including
// its matching CloseExt, recursing through nested standard and
// extension elements alike without interpreting any of them.
func skipExtension(t *[]Token) error {
	if len(*t) == 0 || ((*t)[0].Kind != OpenExt) {
		return errUnexpectedToken(*t, "extension element")
	}
	name, ns := (*t)[0].Name, (*t)[0].Namespace
	*t = (*t)[1:]
	return skipUntilClose(t, func(tok Token) bool {
		return tok.Kind == CloseExt && tok.Name == name && tok.Namespace == ns
	}, func(tok Token) bool {
		return tok.Kind == OpenExt && tok.Name == name && tok.Namespace == ns
	})
}

// skipBalancedStd consumes a standard-namespace open tag of unknown
// name and everything up to its matching close, used for resourcetype
// markers other than collection (spec.md §4.6 treats those as opaque).
func skipBalancedStd(t *[]Token) error {
	if len(*t) == 0 || (*t)[0].Kind != OpenStd {
		return errUnexpectedToken(*t, "standard element")
	}
	name := (*t)[0].Name
	*t = (*t)[1:]
	return skipUntilClose(t, func(tok Token) bool {
		return tok.Kind == CloseStd && tok.Name == name
	}, func(tok Token) bool {
		return tok.Kind == OpenStd && tok.Name == name
	})
}

// skipUntilClose advances past tokens, tracking nested opens of the
// same name/kind so an inner element's close doesn't prematurely end
// the skip, until isClose matches at depth zero.
func skipUntilClose(t *[]Token, isClose, isOpen func(Token) bool) error {
	depth := 0
	for {
		if len(*t) == 0 {
			return errUnexpectedToken(*t, "matching close tag")
		}
		tok := (*t)[0]
		*t = (*t)[1:]
		switch {
		case isOpen(tok):
			depth++
		case isClose(tok):
			if depth == 0 {
				return nil
			}
			depth--
		}
	}
}

func expectOpenStd(t *[]Token, name string) error {
	if len(*t) == 0 || (*t)[0].Kind != OpenStd || (*t)[0].Name != name {
		return errUnexpectedToken(*t, "<"+name+">")
	}
	*t = (*t)[1:]
	return nil
}

func expectCloseStd(t *[]Token, name string) error {
	if len(*t) == 0 || (*t)[0].Kind != CloseStd || (*t)[0].Name != name {
		return errUnexpectedToken(*t, "</"+name+">")
	}
	*t = (*t)[1:]
	return nil
}

func expectText(t *[]Token) (string, error) {
	if len(*t) == 0 || (*t)[0].Kind != Text {
		return "", errUnexpectedToken(*t, "text content")
	}
	content := (*t)[0].Content
	*t = (*t)[1:]
	return content, nil
}

func peekOpenStd(t []Token, name string) bool {
	if len(t) == 0 || t[0].Kind != OpenStd {
		return false
	}
	return name == "" || t[0].Name == name
}

func peekCloseStd(t []Token, name string) bool {
	return len(t) != 0 && t[0].Kind == CloseStd && t[0].Name == name
}

func peekOpenExt(t []Token) bool {
	return len(t) != 0 && t[0].Kind == OpenExt
}
