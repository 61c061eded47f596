package courier

import (
	"bytes"
	"encoding/json"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/itchyny/gojq"
	"github.com/pkg/errors"
)

// Value is a decoded response body. Which field is set depends on Shape:
//
//	ShapeHTML                          Text
//	ShapeImage                         Image
//	ShapeImageBytes, ShapeBinary, Any  Bytes
//	ShapeJSON                          Tree (map[string]any, []any, int, *big.Int, float64, string, bool or nil)
//	ShapeXML                           XML
type Value struct {
	Shape Shape
	Text  string
	Bytes []byte
	Image image.Image
	Tree  any
	XML   *XMLNode
}

// Decode turns a response body into a Value for the given shape. It never
// looks at the content type; matching is done before decoding.
func Decode(shape Shape, body []byte) (*Value, error) {
	v := &Value{Shape: shape}

	switch shape {
	case ShapeHTML:
		v.Text = string(body)
	case ShapeImage:
		img, _, err := image.Decode(bytes.NewReader(body))
		if err != nil {
			return nil, &DecodeError{Shape: shape, Err: err}
		}
		v.Image = img
	case ShapeImageBytes, ShapeBinary, ShapeAny:
		v.Bytes = body
	case ShapeJSON:
		tree, err := decodeJSON(body)
		if err != nil {
			return nil, &DecodeError{Shape: shape, Err: err}
		}
		v.Tree = tree
	case ShapeXML:
		node, err := ParseXML(bytes.NewReader(body))
		if err != nil {
			return nil, &DecodeError{Shape: shape, Err: err}
		}
		v.XML = node
	default:
		return nil, &DecodeError{Shape: shape, Err: errors.New("unknown shape")}
	}
	return v, nil
}

func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, errors.Wrap(err, "malformed json")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("malformed json: trailing data after top-level value")
	}
	return normalizeNumbers(tree)
}

// normalizeNumbers replaces json.Number leaves with the number types gojq
// understands. Integers stay exact: int when they fit, *big.Int otherwise.
func normalizeNumbers(v any) (any, error) {
	var err error
	switch v := v.(type) {
	case json.Number:
		return parseNumber(v)
	case map[string]any:
		for k, x := range v {
			if v[k], err = normalizeNumbers(x); err != nil {
				return nil, err
			}
		}
	case []any:
		for i, x := range v {
			if v[i], err = normalizeNumbers(x); err != nil {
				return nil, err
			}
		}
	}
	return v, nil
}

func parseNumber(n json.Number) (any, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 0); err == nil {
			return int(i), nil
		}
		if b, ok := new(big.Int).SetString(s, 10); ok {
			return b, nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, errors.Wrapf(err, "malformed json: number %s", s)
	}
	return f, nil
}

// Document parses an HTML value into a goquery document.
func (v *Value) Document() (*goquery.Document, error) {
	if v.Shape != ShapeHTML {
		return nil, errors.Errorf("%s value is not html", v.Shape)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(v.Text))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to parse html")
	}
	return doc, nil
}

// Query runs a jq expression over a JSON value and returns every result.
func (v *Value) Query(expr string) ([]any, error) {
	if v.Shape != ShapeJSON {
		return nil, errors.Errorf("%s value is not json", v.Shape)
	}
	q, err := gojq.Parse(expr)
	if err != nil {
		return nil, errors.Wrap(err, "invalid jq expression")
	}

	var out []any
	iter := q.Run(v.Tree)
	for {
		r, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := r.(error); ok {
			return nil, errors.Wrap(err, "jq")
		}
		out = append(out, r)
	}
	return out, nil
}
