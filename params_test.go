package courier

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsBuildEmpty(t *testing.T) {
	var p Params
	assert.Equal(t, "https://example.com/status", p.Build("https://example.com/status"))
	assert.True(t, p.Sealed())
}

func TestParamsBuild(t *testing.T) {
	var p Params
	p.Add("datasource", "tranquility")
	p.AddInt("page", 2)
	p.Add("neg", -15)
	p.Add("ok", true)
	p.Add("ratio", 0.25)

	assert.Equal(t,
		"https://example.com/v1/status/?datasource=tranquility&page=2&neg=-15&ok=true&ratio=0.25",
		p.Build("https://example.com/v1/status/"))
}

func TestParamsLargeIntegersHaveNoGrouping(t *testing.T) {
	var p Params
	p.AddInt("n", 1234567)
	p.Add("u", uint64(18446744073709551615))
	assert.Equal(t, "/x?n=1234567&u=18446744073709551615", p.Build("/x"))
}

func TestParamsBaseWithQuery(t *testing.T) {
	var p Params
	p.Add("b", "2")
	assert.Equal(t, "/x?a=1&b=2", p.Build("/x?a=1"))

	var q Params
	q.Add("b", "2")
	assert.Equal(t, "/x?b=2", q.Build("/x?"))
}

func TestParamsRoundTrip(t *testing.T) {
	pairs := [][2]string{
		{"q", "hello world"},
		{"a&b", "c=d"},
		{"path", "/usr/local/bin?x#frag"},
		{"unicode", "żółw 🐢"},
		{"q", "repeated key"},
		{"empty", ""},
		{"plus", "1+1"},
	}

	var p Params
	for _, kv := range pairs {
		p.Add(kv[0], kv[1])
	}
	built := p.Build("https://example.com/search")

	base, query, found := strings.Cut(built, "?")
	require.True(t, found)
	assert.Equal(t, "https://example.com/search", base)

	parts := strings.Split(query, "&")
	require.Len(t, parts, len(pairs))
	for i, part := range parts {
		rawKey, rawValue, ok := strings.Cut(part, "=")
		require.True(t, ok)
		key, err := url.QueryUnescape(rawKey)
		require.NoError(t, err)
		value, err := url.QueryUnescape(rawValue)
		require.NoError(t, err)
		assert.Equal(t, pairs[i][0], key)
		assert.Equal(t, pairs[i][1], value)
	}
}

func TestParamsAddAfterBuildIsIgnored(t *testing.T) {
	var p Params
	p.Add("a", 1)
	first := p.Build("/x")

	assert.NotPanics(t, func() { p.Add("b", 2) })
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, first, p.Build("/x"))
}

type stringerID int

func (s stringerID) String() string { return "id-" + strings.Repeat("x", int(s)) }

func TestStringify(t *testing.T) {
	assert.Equal(t, "", stringify(nil))
	assert.Equal(t, "id-xx", stringify(stringerID(2)))
	assert.Equal(t, "bytes", stringify([]byte("bytes")))
	assert.Equal(t, "1.5", stringify(float32(1.5)))
	assert.Equal(t, "[1 2]", stringify([]int{1, 2}))
}
