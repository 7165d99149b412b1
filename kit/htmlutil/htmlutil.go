package htmlutil

import (
	"fmt"
	"html/template"
	"maps"
	"slices"
	"sort"
	"strings"
)

// Element is one node of a markup tree. Attributes are escaped on render;
// AttributesKnownSafe are written as-is.
type Element struct {
	Tag                 string            `json:"tag,omitempty"`
	Attributes          map[string]string `json:"attributes,omitempty"`
	AttributesKnownSafe map[string]string `json:"attributesKnownSafe,omitempty"`
	BooleanAttributes   []string          `json:"booleanAttributes,omitempty"`
	TextContent         string            `json:"textContent,omitempty"`
	DangerousInnerHTML  string            `json:"dangerousInnerHTML,omitempty"`
	Children            []*Element        `json:"children,omitempty"`
	SelfClosing         bool              `json:"-"`
}

var (
	// see https://html.spec.whatwg.org/multipage/syntax.html#void-elements
	// If you need something to self-close something that isn't on this list, set the SelfClosing field to true
	selfClosingTags = []string{
		"area", "base", "br", "col", "embed", "hr", "img",
		"input", "link", "meta", "source", "track", "wbr",
	}
)

func RenderElement(el *Element) (template.HTML, error) {
	var htmlBuilder strings.Builder

	err := RenderElementToBuilder(el, &htmlBuilder)
	if err != nil {
		return "", fmt.Errorf("could not render element: %w", err)
	}

	return template.HTML(htmlBuilder.String()), nil
}

// RenderElementToBuilder writes el and all of its children. Output is
// deterministic: attribute keys are sorted and children keep their order.
func RenderElementToBuilder(el *Element, htmlBuilder *strings.Builder) error {
	if el == nil {
		return fmt.Errorf("element is nil")
	}

	escapedTag := template.HTMLEscapeString(el.Tag)
	if escapedTag == "" {
		return fmt.Errorf("element has no tag")
	}

	isSelfClosing := (slices.Contains(selfClosingTags, escapedTag) || el.SelfClosing) && len(el.Children) == 0

	escapedAttributes := combineIntoDangerousAttributes(el)

	htmlBuilder.WriteString("<")
	htmlBuilder.WriteString(escapedTag)

	if len(escapedAttributes) > 0 {
		escapedKeys := slices.Collect(maps.Keys(escapedAttributes))
		sort.Strings(escapedKeys)
		for _, escapedKey := range escapedKeys {
			writeAttribute(htmlBuilder, escapedKey, escapedAttributes[escapedKey])
		}
	}

	for _, booleanAttribute := range el.BooleanAttributes {
		htmlBuilder.WriteString(" ")
		htmlBuilder.WriteString(template.HTMLEscapeString(booleanAttribute))
	}

	if isSelfClosing {
		htmlBuilder.WriteString(" />")
		return nil
	}

	htmlBuilder.WriteString(">")
	htmlBuilder.WriteString(combineIntoDangerousInnerHTML(el))

	for i, child := range el.Children {
		if err := RenderElementToBuilder(child, htmlBuilder); err != nil {
			return fmt.Errorf("child %d of <%s>: %w", i, escapedTag, err)
		}
	}

	htmlBuilder.WriteString("</")
	htmlBuilder.WriteString(escapedTag)
	htmlBuilder.WriteString(">")

	return nil
}

func writeAttribute(htmlBuilder *strings.Builder, key, value string) {
	htmlBuilder.WriteString(" ")
	htmlBuilder.WriteString(key)
	htmlBuilder.WriteString(`="`)
	htmlBuilder.WriteString(value)
	htmlBuilder.WriteString(`"`)
}

func combineIntoDangerousAttributes(el *Element) map[string]string {
	attributes := make(map[string]string, len(el.Attributes)+len(el.AttributesKnownSafe))
	for k, v := range el.Attributes {
		escapedKey := template.HTMLEscapeString(k)
		attributes[escapedKey] = template.HTMLEscapeString(v)
	}
	for k, v := range el.AttributesKnownSafe {
		escapedKey := template.HTMLEscapeString(k)
		attributes[escapedKey] = v
	}
	return attributes
}

func combineIntoDangerousInnerHTML(el *Element) string {
	if el.DangerousInnerHTML != "" {
		return el.DangerousInnerHTML
	}
	if el.TextContent != "" {
		return template.HTMLEscapeString(el.TextContent)
	}
	return ""
}

// Attr returns the value of key from either attribute map, safe values
// taking precedence.
func (el *Element) Attr(key string) (string, bool) {
	if v, ok := el.AttributesKnownSafe[key]; ok {
		return v, true
	}
	v, ok := el.Attributes[key]
	return v, ok
}

// Clone returns a deep copy of el.
func Clone(el *Element) *Element {
	if el == nil {
		return nil
	}
	c := &Element{
		Tag:                 el.Tag,
		Attributes:          maps.Clone(el.Attributes),
		AttributesKnownSafe: maps.Clone(el.AttributesKnownSafe),
		BooleanAttributes:   slices.Clone(el.BooleanAttributes),
		TextContent:         el.TextContent,
		DangerousInnerHTML:  el.DangerousInnerHTML,
		SelfClosing:         el.SelfClosing,
	}
	if el.Children != nil {
		c.Children = make([]*Element, len(el.Children))
		for i, child := range el.Children {
			c.Children[i] = Clone(child)
		}
	}
	return c
}

// Equal reports whether a and b describe the same markup. Attributes are
// compared after escaping, so an escaped and a known-safe spelling of the
// same value are equal. SelfClosing is a rendering hint and is ignored.
func Equal(a, b *Element) bool {
	return len(Diff(a, b)) == 0
}

// Diff lists the differences between a and b, each prefixed with the
// path of the element where it was found (e.g. "svg/g[2]/rect[1]").
func Diff(a, b *Element) []string {
	var out []string
	root := "(root)"
	if a != nil && a.Tag != "" {
		root = a.Tag
	}
	diffInto(&out, root, a, b)
	return out
}

func diffInto(out *[]string, here string, a, b *Element) {
	if a == nil || b == nil {
		if a != b {
			*out = append(*out, fmt.Sprintf("%s: one element is nil", here))
		}
		return
	}

	if a.Tag != b.Tag {
		*out = append(*out, fmt.Sprintf("%s: tag %q != %q", here, a.Tag, b.Tag))
		return
	}

	attrsA, attrsB := combineIntoDangerousAttributes(a), combineIntoDangerousAttributes(b)
	keys := slices.Collect(maps.Keys(attrsA))
	for k := range attrsB {
		if _, ok := attrsA[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		va, okA := attrsA[k]
		vb, okB := attrsB[k]
		switch {
		case !okA:
			*out = append(*out, fmt.Sprintf("%s: unexpected attribute %s=%q", here, k, vb))
		case !okB:
			*out = append(*out, fmt.Sprintf("%s: missing attribute %s=%q", here, k, va))
		case va != vb:
			*out = append(*out, fmt.Sprintf("%s: attribute %s %q != %q", here, k, va, vb))
		}
	}

	if !slices.Equal(a.BooleanAttributes, b.BooleanAttributes) {
		*out = append(*out, fmt.Sprintf("%s: boolean attributes %v != %v", here, a.BooleanAttributes, b.BooleanAttributes))
	}

	if ia, ib := combineIntoDangerousInnerHTML(a), combineIntoDangerousInnerHTML(b); ia != ib {
		*out = append(*out, fmt.Sprintf("%s: content %q != %q", here, ia, ib))
	}

	if len(a.Children) != len(b.Children) {
		*out = append(*out, fmt.Sprintf("%s: %d children != %d", here, len(a.Children), len(b.Children)))
		return
	}
	for i, child := range a.Children {
		tag := "?"
		if child != nil {
			tag = child.Tag
		}
		diffInto(out, fmt.Sprintf("%s/%s[%d]", here, tag, i), child, b.Children[i])
	}
}
