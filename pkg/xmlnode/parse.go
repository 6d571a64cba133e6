package xmlnode

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// ErrNoRoot is returned by Parse for input without a root element.
var ErrNoRoot = errors.New("document has no root element")

// Parse reads raw XML and returns its root element.
func Parse(raw []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, ErrNoRoot
	}
	return root, nil
}

// TextAt returns the trimmed text of the first element matching path under
// el, or "" when there is none. Paths use etree syntax with unprefixed tags,
// which match regardless of namespace.
func TextAt(el *etree.Element, path string) string {
	if el == nil {
		return ""
	}
	found := el.FindElement(path)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.Text())
}

// FloatAt parses the text at path as a float, 0 when absent or invalid.
func FloatAt(el *etree.Element, path string) float64 {
	f, err := strconv.ParseFloat(TextAt(el, path), 64)
	if err != nil {
		return 0
	}
	return f
}

// AttrAt returns an attribute of the first element matching path.
func AttrAt(el *etree.Element, path, key string) string {
	if el == nil {
		return ""
	}
	found := el.FindElement(path)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.SelectAttrValue(key, ""))
}

// DecodeBase64 decodes a base64 payload, ignoring embedded whitespace.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
	return base64.StdEncoding.DecodeString(s)
}

// JoinedTextAt concatenates the trimmed text of every element matching path,
// for payloads split across repeated parts.
func JoinedTextAt(el *etree.Element, path string) string {
	if el == nil {
		return ""
	}
	var b strings.Builder
	for _, found := range el.FindElements(path) {
		b.WriteString(strings.TrimSpace(found.Text()))
	}
	return b.String()
}
