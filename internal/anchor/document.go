// Package anchor implements stable text anchors for rendered section
// content: serializing a concrete selection into a portable,
// content-addressable descriptor and re-locating that descriptor in a
// later (possibly re-rendered) document tree.
package anchor

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Range is a concrete, non-collapsed span of document text. Both
// endpoints reference text leaves of the tree the range was built
// against; a Range never survives re-parsing and is never persisted.
type Range struct {
	StartNode   *html.Node
	StartOffset int
	EndNode     *html.Node
	EndOffset   int
}

// textLeaf records one text node and its cumulative byte offset into the
// document's concatenated text.
type textLeaf struct {
	node  *html.Node
	start int
}

// headingInfo records a heading-class element carrying a stable id,
// with the byte offsets where its text begins and ends.
type headingInfo struct {
	node  *html.Node
	id    string
	start int
	end   int
}

// Document wraps a parsed tree with the precomputed views the codec
// needs: full text, text leaves with cumulative offsets, pre-order
// indices for document-order comparison, and the heading-id scan.
// Building it is one walk; all lookups afterwards are cheap.
type Document struct {
	root     *html.Node
	text     string
	leaves   []textLeaf
	order    map[*html.Node]int
	headings []headingInfo
	byID     map[string]*headingInfo
}

// Parse reads HTML and builds a Document over the resulting tree.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("anchor: parse document: %w", err)
	}
	return NewDocument(root), nil
}

// ParseString is Parse over an in-memory HTML string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// NewDocument builds the precomputed views with a single pre-order walk.
func NewDocument(root *html.Node) *Document {
	d := &Document{
		root:  root,
		order: make(map[*html.Node]int),
		byID:  make(map[string]*headingInfo),
	}

	var sb strings.Builder
	next := 0

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		d.order[n] = next
		next++

		headingIdx := -1
		if id, ok := headingID(n); ok {
			d.headings = append(d.headings, headingInfo{node: n, id: id, start: sb.Len()})
			headingIdx = len(d.headings) - 1
		}

		if n.Type == html.TextNode {
			d.leaves = append(d.leaves, textLeaf{node: n, start: sb.Len()})
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if headingIdx >= 0 {
			d.headings[headingIdx].end = sb.Len()
		}
	}
	walk(root)

	d.text = sb.String()
	for i := range d.headings {
		d.byID[d.headings[i].id] = &d.headings[i]
	}
	return d
}

// headingID reports whether n is a heading-class element with a stable
// id, and returns that id.
func headingID(n *html.Node) (string, bool) {
	if n.Type != html.ElementNode {
		return "", false
	}
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
	default:
		return "", false
	}
	for _, attr := range n.Attr {
		if attr.Key == "id" && attr.Val != "" {
			return attr.Val, true
		}
	}
	return "", false
}

// Text returns the full concatenated text content of the document.
func (d *Document) Text() string { return d.text }

// Before reports whether a precedes b in document order. Nodes outside
// this tree compare as not-before.
func (d *Document) Before(a, b *html.Node) bool {
	ia, oka := d.order[a]
	ib, okb := d.order[b]
	return oka && okb && ia < ib
}

// heading returns the heading with the given id, if present.
func (d *Document) heading(id string) (*headingInfo, bool) {
	h, ok := d.byID[id]
	return h, ok
}

// nearestHeading finds the anchor element for a selection starting at n:
// the closest ancestor heading with an id, or failing that the last
// heading with an id that precedes n in document order.
func (d *Document) nearestHeading(n *html.Node) (*headingInfo, bool) {
	for p := n; p != nil; p = p.Parent {
		if id, ok := headingID(p); ok {
			if h, found := d.byID[id]; found {
				return h, true
			}
		}
	}
	var last *headingInfo
	for i := range d.headings {
		if d.Before(d.headings[i].node, n) {
			last = &d.headings[i]
		}
	}
	return last, last != nil
}

// offsetOf converts a (text leaf, in-leaf offset) endpoint to an
// absolute byte offset into the document text.
func (d *Document) offsetOf(n *html.Node, off int) (int, error) {
	for _, leaf := range d.leaves {
		if leaf.node == n {
			if off < 0 || off > len(n.Data) {
				return 0, fmt.Errorf("anchor: offset %d out of node bounds", off)
			}
			return leaf.start + off, nil
		}
	}
	return 0, fmt.Errorf("anchor: node is not a text leaf of this document")
}

// RangeOffsets returns the absolute [start, end) byte offsets of r.
func (d *Document) RangeOffsets(r Range) (int, int, error) {
	start, err := d.offsetOf(r.StartNode, r.StartOffset)
	if err != nil {
		return 0, 0, err
	}
	end, err := d.offsetOf(r.EndNode, r.EndOffset)
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("anchor: range ends before it starts")
	}
	return start, end, nil
}

// RangeText returns the document text covered by r.
func (d *Document) RangeText(r Range) (string, error) {
	start, end, err := d.RangeOffsets(r)
	if err != nil {
		return "", err
	}
	return d.text[start:end], nil
}

// RangeFromOffsets reconstructs a concrete range from absolute byte
// offsets by walking the text leaves in order and pairing each offset
// with the leaf that contains it.
func (d *Document) RangeFromOffsets(start, end int) (*Range, error) {
	if start < 0 || end > len(d.text) || end <= start {
		return nil, fmt.Errorf("anchor: offsets [%d,%d) out of document bounds", start, end)
	}
	r := &Range{StartOffset: -1, EndOffset: -1}
	for _, leaf := range d.leaves {
		length := len(leaf.node.Data)
		if r.StartNode == nil && start >= leaf.start && start < leaf.start+length {
			r.StartNode = leaf.node
			r.StartOffset = start - leaf.start
		}
		if end > leaf.start && end <= leaf.start+length {
			r.EndNode = leaf.node
			r.EndOffset = end - leaf.start
		}
	}
	if r.StartNode == nil || r.EndNode == nil {
		return nil, fmt.Errorf("anchor: offsets [%d,%d) not covered by text leaves", start, end)
	}
	return r, nil
}
