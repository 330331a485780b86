package webdav

import "fmt"

func errUnexpectedToken(t []Token, want string) error {
	if len(t) == 0 {
		return fmt.Errorf("expected %s, found end of document", want)
	}
	return fmt.Errorf("expected %s, found %s", want, describeToken(t[0]))
}

func errDuplicate(name string) error {
	return fmt.Errorf("duplicate %s element", name)
}

func errMissing(name string) error {
	return fmt.Errorf("missing required %s element", name)
}

func errTrailingTokens(t []Token) error {
	return fmt.Errorf("unexpected content after root element: %s", describeToken(t[0]))
}

func describeToken(tok Token) string {
	switch tok.Kind {
	case OpenStd:
		return "<" + tok.Name + ">"
	case CloseStd:
		return "</" + tok.Name + ">"
	case OpenExt:
		return "<" + tok.Name + " xmlns=\"" + tok.Namespace + "\">"
	case CloseExt:
		return "</" + tok.Name + ">"
	case Text:
		return "text content"
	default:
		return "unknown token"
	}
}
