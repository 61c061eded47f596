package courier

import (
	"mime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Shape is the response body format a Request expects.
type Shape int

const (
	ShapeAny        Shape = iota // matches any content type
	ShapeHTML                    // html and xhtml, delivered as text
	ShapeImage                   // image/*, decoded into an image.Image
	ShapeImageBytes              // image/*, delivered as raw bytes
	ShapeJSON                    // json family, decoded into a generic tree
	ShapeXML                     // xml family, decoded into an XMLNode tree
	ShapeBinary                  // anything that is not text, json or xml
)

var shapeNames = [...]string{
	ShapeAny:        "any",
	ShapeHTML:       "html",
	ShapeImage:      "image",
	ShapeImageBytes: "image-bytes",
	ShapeJSON:       "json",
	ShapeXML:        "xml",
	ShapeBinary:     "binary",
}

func (s Shape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return "shape(" + strconv.Itoa(int(s)) + ")"
	}
	return shapeNames[s]
}

// ParseShape maps a shape name as returned by String back to a Shape.
func ParseShape(name string) (Shape, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range shapeNames {
		if n == name {
			return Shape(i), nil
		}
	}
	return ShapeAny, errors.Errorf("unknown response shape %q", name)
}

// Accept returns the Accept header value advertised for the shape.
func (s Shape) Accept() string {
	switch s {
	case ShapeHTML:
		return "text/html, application/xhtml+xml"
	case ShapeImage, ShapeImageBytes:
		return "image/*"
	case ShapeJSON:
		return "application/json"
	case ShapeXML:
		return "application/xml, text/xml"
	case ShapeAny, ShapeBinary:
		return "*/*"
	}
	return "*/*"
}

// Matches reports whether a transport reported content type belongs to the
// shape's family. Parameters such as charset are ignored and the comparison
// is case-insensitive. An empty content type only matches ShapeAny.
func (s Shape) Matches(contentType string) bool {
	if s == ShapeAny {
		return true
	}
	mt := mediaType(contentType)
	if mt == "" {
		return false
	}

	switch s {
	case ShapeHTML:
		return mt == "text/html" || mt == "application/xhtml+xml"
	case ShapeImage, ShapeImageBytes:
		return strings.HasPrefix(mt, "image/")
	case ShapeJSON:
		return isJSON(mt)
	case ShapeXML:
		return isXML(mt)
	case ShapeBinary:
		return !strings.HasPrefix(mt, "text/") && !isJSON(mt) && !isXML(mt)
	}
	return false
}

func isJSON(mt string) bool {
	return mt == "application/json" || mt == "text/json" || strings.HasSuffix(mt, "+json")
}

func isXML(mt string) bool {
	return mt == "application/xml" || mt == "text/xml" || strings.HasSuffix(mt, "+xml")
}

// mediaType lowercases the type/subtype of a Content-Type header and drops
// its parameters. Malformed parameters still yield the bare media type.
func mediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
