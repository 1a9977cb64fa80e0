package expr

import "strings"

// Segment is one piece of a text template: literal text, a variable path, or an
// embedded expression. Exactly one of the fields is meaningful.
type Segment struct {
	Text    string
	Path    string
	Program *Program
}

// IsLiteral reports whether the segment is plain text.
func (s Segment) IsLiteral() bool { return s.Path == "" && s.Program == nil }

// Template is authored text with {{...}} tokens. A token holding a plain dotted
// path is a variable reference; anything else is compiled as an expression.
type Template struct {
	src      string
	Segments []Segment
}

// ParseTemplate splits src into segments, compiling embedded expressions.
func ParseTemplate(src string) (*Template, error) {
	t := &Template{src: src}
	rest := src
	offset := 0
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			if rest != "" {
				t.Segments = append(t.Segments, Segment{Text: rest})
			}
			return t, nil
		}
		end := strings.Index(rest[open+2:], "}}")
		if end < 0 {
			return nil, &ParseError{Expr: src, Offset: offset + open, Msg: "unterminated {{ in template"}
		}
		if open > 0 {
			t.Segments = append(t.Segments, Segment{Text: rest[:open]})
		}
		inner := strings.TrimSpace(rest[open+2 : open+2+end])
		if inner == "" {
			return nil, &ParseError{Expr: src, Offset: offset + open, Msg: "empty {{}} in template"}
		}
		if IsPath(inner) {
			t.Segments = append(t.Segments, Segment{Path: inner})
		} else {
			p, err := Compile(inner)
			if err != nil {
				if pe, ok := err.(*ParseError); ok {
					return nil, &ParseError{Expr: src, Offset: offset + open + 2 + pe.Offset, Msg: pe.Msg}
				}
				return nil, err
			}
			t.Segments = append(t.Segments, Segment{Program: p})
		}
		consumed := open + 2 + end + 2
		rest = rest[consumed:]
		offset += consumed
	}
}

// Source returns the original template text.
func (t *Template) Source() string { return t.src }

// HasTokens reports whether the template contains any variable or expression.
func (t *Template) HasTokens() bool {
	for _, s := range t.Segments {
		if !s.IsLiteral() {
			return true
		}
	}
	return false
}

// IsPath reports whether s is a dotted path such as member.name or claim.lines.0.amount.
func IsPath(s string) bool {
	if s == "" {
		return false
	}
	switch strings.ToLower(s) {
	case "true", "false", "null", "nil":
		return false
	}
	for i, seg := range strings.Split(s, ".") {
		if seg == "" {
			return false
		}
		if i == 0 && !isIdentStart(seg[0]) {
			return false
		}
		for j := 0; j < len(seg); j++ {
			if !isIdentPart(seg[j]) {
				return false
			}
		}
	}
	return true
}
