// Package xmlnode provides a small declarative XML tree builder used by the
// carrier request builders.
//
// Nodes are composed fluently and rendered through etree, so attributes and
// children are written in insertion order and text is escaped. Nil children
// are ignored by Add, which lets builders express optional elements inline:
//
//	doc := xmlnode.New("PostageRateRequest",
//		xmlnode.Leaf("RequesterID", cfg.RequesterID),
//		xmlnode.Optional("ToZIP4", zip4),
//	)
package xmlnode

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// BoolStyle selects how a boolean is rendered on the wire. Carriers disagree,
// so every boolean field names its style explicitly.
type BoolStyle int

const (
	// Lower renders "true" / "false".
	Lower BoolStyle = iota
	// Upper renders "TRUE" / "FALSE".
	Upper
)

// FormatBool renders v in the given style.
func FormatBool(v bool, style BoolStyle) string {
	s := strconv.FormatBool(v)
	if style == Upper {
		return strings.ToUpper(s)
	}
	return s
}

type attr struct {
	key   string
	value string
}

// Node is one XML element with ordered attributes and children.
type Node struct {
	name     string
	attrs    []attr
	children []*Node
	text     string
	hasText  bool
}

// New creates an element with the given children.
func New(name string, children ...*Node) *Node {
	n := &Node{name: name}
	return n.Add(children...)
}

// Leaf creates an element holding a text value. An empty value still emits
// the element.
func Leaf(name, value string) *Node {
	return &Node{name: name, text: value, hasText: true}
}

// Int creates an element holding an integer.
func Int(name string, v int) *Node {
	return Leaf(name, strconv.Itoa(v))
}

// Float creates an element holding a float in its shortest form.
func Float(name string, v float64) *Node {
	return Leaf(name, FormatFloat(v))
}

// Bool creates an element holding a boolean in the given style.
func Bool(name string, v bool, style BoolStyle) *Node {
	return Leaf(name, FormatBool(v, style))
}

// Optional creates a leaf when value is non-nil and returns nil otherwise, so
// the element is left out of the document entirely.
func Optional(name string, value *string) *Node {
	if value == nil {
		return nil
	}
	return Leaf(name, *value)
}

// NonEmpty creates a leaf only when value is not blank.
func NonEmpty(name, value string) *Node {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return Leaf(name, value)
}

// LeafIf creates a leaf only when cond holds.
func LeafIf(cond bool, name, value string) *Node {
	if !cond {
		return nil
	}
	return Leaf(name, value)
}

// FormatFloat renders v without trailing zeros ("1.5", "16", "0.454").
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Attr appends an attribute. Attributes render in the order they were added.
func (n *Node) Attr(key, value string) *Node {
	n.attrs = append(n.attrs, attr{key: key, value: value})
	return n
}

// BoolAttr appends a boolean attribute in the given style.
func (n *Node) BoolAttr(key string, v bool, style BoolStyle) *Node {
	return n.Attr(key, FormatBool(v, style))
}

// Text sets the element's text value.
func (n *Node) Text(value string) *Node {
	n.text = value
	n.hasText = true
	return n
}

// Add appends children, skipping nil entries.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if c != nil {
			n.children = append(n.children, c)
		}
	}
	return n
}

// Name returns the element name.
func (n *Node) Name() string {
	return n.name
}

// Value returns the element's text.
func (n *Node) Value() string {
	return n.text
}

// Children returns the element's children in order.
func (n *Node) Children() []*Node {
	return n.children
}

// AttrValue returns the value of the named attribute.
func (n *Node) AttrValue(key string) (string, bool) {
	for _, a := range n.attrs {
		if a.key == key {
			return a.value, true
		}
	}
	return "", false
}

// Child returns the first direct child with the given name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every direct child with the given name.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

// Find walks down the tree following the given element names and returns the
// first match, or nil.
func (n *Node) Find(path ...string) *Node {
	cur := n
	for _, name := range path {
		if cur = cur.Child(name); cur == nil {
			return nil
		}
	}
	return cur
}

// Element converts the tree into an etree element.
func (n *Node) Element() *etree.Element {
	el := etree.NewElement(n.name)
	n.fill(el)
	return el
}

func (n *Node) fill(el *etree.Element) {
	for _, a := range n.attrs {
		el.CreateAttr(a.key, a.value)
	}
	if n.hasText && n.text != "" {
		el.SetText(n.text)
	}
	for _, c := range n.children {
		c.fill(el.CreateElement(c.name))
	}
}

// Document wraps the tree in an etree document.
func (n *Node) Document() *etree.Document {
	doc := etree.NewDocument()
	n.fill(doc.CreateElement(n.name))
	return doc
}

// Bytes serializes the tree without an XML declaration or indentation.
func (n *Node) Bytes() []byte {
	b, err := n.Document().WriteToBytes()
	if err != nil {
		// etree only fails when the underlying writer fails; a bytes.Buffer
		// never does.
		return nil
	}
	return b
}

// String serializes the tree.
func (n *Node) String() string {
	return string(n.Bytes())
}
