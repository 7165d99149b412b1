package htmlutil

import (
	"errors"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"
)

var ErrMalformed = errors.New("malformed markup")

// Parse reads well-formed XML-style markup (such as an SVG document) into an
// Element tree. Comments, processing instructions, doctypes and
// whitespace-only text are dropped. Attribute values and text are unescaped
// into Attributes and TextContent, so rendering the result re-escapes them.
func Parse(r io.Reader) (*Element, error) {
	l := xml.NewLexer(parse.NewInput(r))

	var root *Element
	var stack []*Element
	var pending *Element
	inPI := false

	for {
		tt, data := l.Next()
		switch tt {
		case xml.ErrorToken:
			if err := l.Err(); err != nil && err != io.EOF {
				return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
			}
			if pending != nil || len(stack) > 0 {
				return nil, fmt.Errorf("%w: unexpected end of input", ErrMalformed)
			}
			if root == nil {
				return nil, fmt.Errorf("%w: no root element", ErrMalformed)
			}
			return root, nil

		case xml.StartTagToken:
			if pending != nil {
				return nil, fmt.Errorf("%w: nested start tag inside <%s>", ErrMalformed, pending.Tag)
			}
			pending = &Element{Tag: string(l.Text())}

		case xml.StartTagPIToken:
			inPI = true

		case xml.StartTagClosePIToken:
			inPI = false

		case xml.AttributeToken:
			if inPI {
				continue
			}
			if pending == nil {
				return nil, fmt.Errorf("%w: attribute outside of start tag", ErrMalformed)
			}
			if pending.Attributes == nil {
				pending.Attributes = make(map[string]string)
			}
			key := string(l.Text())
			val := l.AttrVal()
			if val == nil {
				pending.BooleanAttributes = append(pending.BooleanAttributes, key)
				continue
			}
			pending.Attributes[key] = html.UnescapeString(unquote(string(val)))

		case xml.StartTagCloseToken, xml.StartTagCloseVoidToken:
			if pending == nil {
				return nil, fmt.Errorf("%w: stray tag close", ErrMalformed)
			}
			el := pending
			pending = nil
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: more than one root element", ErrMalformed)
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			if tt == xml.StartTagCloseVoidToken {
				el.SelfClosing = true
				continue
			}
			stack = append(stack, el)

		case xml.EndTagToken:
			name := string(l.Text())
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unexpected </%s>", ErrMalformed, name)
			}
			top := stack[len(stack)-1]
			if top.Tag != name {
				return nil, fmt.Errorf("%w: </%s> closes <%s>", ErrMalformed, name, top.Tag)
			}
			stack = stack[:len(stack)-1]

		case xml.TextToken, xml.CDATAToken:
			text := html.UnescapeString(string(data))
			if tt == xml.CDATAToken {
				text = string(l.Text())
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: text outside of root element", ErrMalformed)
			}
			stack[len(stack)-1].TextContent += text
		}
	}
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
