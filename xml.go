package courier

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

// XMLNode is one element of a generic XML tree. Text holds the element's
// character data with surrounding whitespace trimmed.
type XMLNode struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Text     string
	Children []*XMLNode
}

// Attr returns the value of the first attribute with the given local name.
func (n *XMLNode) Attr(local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first direct child with the given local name.
func (n *XMLNode) Child(local string) *XMLNode {
	for _, c := range n.Children {
		if c.Name.Local == local {
			return c
		}
	}
	return nil
}

// ParseXML reads a single-rooted document into an XMLNode tree. Documents
// declaring a non UTF-8 encoding are transcoded.
func ParseXML(r io.Reader) (*XMLNode, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel

	var (
		root  *XMLNode
		stack []*XMLNode
		text  []*strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "malformed xml")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, errors.New("malformed xml: more than one root element")
			}
			n := &XMLNode{Name: t.Name, Attrs: append([]xml.Attr(nil), t.Attr...)}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else {
				root = n
			}
			stack = append(stack, n)
			text = append(text, &strings.Builder{})
		case xml.EndElement:
			n := stack[len(stack)-1]
			n.Text = strings.TrimSpace(text[len(text)-1].String())
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		case xml.CharData:
			if len(stack) > 0 {
				text[len(text)-1].Write(t)
			} else if len(strings.TrimSpace(string(t))) > 0 {
				return nil, errors.New("malformed xml: text outside root element")
			}
		}
	}
	if root == nil {
		return nil, errors.New("malformed xml: no root element")
	}
	return root, nil
}
