package courier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeMatches(t *testing.T) {
	tests := []struct {
		shape       Shape
		contentType string
		want        bool
	}{
		{ShapeAny, "", true},
		{ShapeAny, "text/plain", true},
		{ShapeAny, "application/octet-stream", true},

		{ShapeHTML, "text/html", true},
		{ShapeHTML, "text/html; charset=utf-8", true},
		{ShapeHTML, "TEXT/HTML", true},
		{ShapeHTML, "application/xhtml+xml", true},
		{ShapeHTML, "text/plain", false},
		{ShapeHTML, "application/xml", false},
		{ShapeHTML, "", false},

		{ShapeImage, "image/png", true},
		{ShapeImage, "image/svg+xml", true},
		{ShapeImage, "Image/JPEG", true},
		{ShapeImage, "application/octet-stream", false},
		{ShapeImageBytes, "image/gif", true},
		{ShapeImageBytes, "text/html", false},

		{ShapeJSON, "application/json", true},
		{ShapeJSON, "application/json; charset=UTF-8", true},
		{ShapeJSON, "text/json", true},
		{ShapeJSON, "application/vnd.api+json", true},
		{ShapeJSON, "application/problem+json", true},
		{ShapeJSON, "text/plain", false},
		{ShapeJSON, "application/javascript", false},
		{ShapeJSON, "", false},

		{ShapeXML, "application/xml", true},
		{ShapeXML, "text/xml; charset=iso-8859-1", true},
		{ShapeXML, "application/atom+xml", true},
		{ShapeXML, "application/rss+xml", true},
		{ShapeXML, "application/json", false},
		{ShapeXML, "text/html", false},

		{ShapeBinary, "application/octet-stream", true},
		{ShapeBinary, "image/png", true},
		{ShapeBinary, "application/pdf", true},
		{ShapeBinary, "text/plain", false},
		{ShapeBinary, "text/html", false},
		{ShapeBinary, "application/json", false},
		{ShapeBinary, "application/hal+json", false},
		{ShapeBinary, "application/xml", false},
		{ShapeBinary, "application/atom+xml", false},
		{ShapeBinary, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.shape.String()+"/"+tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.shape.Matches(tt.contentType))
			// repeated calls never change the answer
			assert.Equal(t, tt.want, tt.shape.Matches(tt.contentType))
		})
	}
}

func TestShapeMatchesMalformedParameters(t *testing.T) {
	assert.True(t, ShapeJSON.Matches("application/json; charset"))
	assert.True(t, ShapeHTML.Matches("text/html;;"))
}

func TestParseShape(t *testing.T) {
	for _, s := range []Shape{ShapeAny, ShapeHTML, ShapeImage, ShapeImageBytes, ShapeJSON, ShapeXML, ShapeBinary} {
		got, err := ParseShape(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	got, err := ParseShape(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, ShapeJSON, got)

	_, err = ParseShape("yaml")
	assert.Error(t, err)
	assert.Equal(t, "shape(42)", Shape(42).String())
}

func TestShapeAccept(t *testing.T) {
	assert.Equal(t, "application/json", ShapeJSON.Accept())
	assert.Equal(t, "image/*", ShapeImageBytes.Accept())
	assert.Equal(t, "*/*", ShapeBinary.Accept())
}
