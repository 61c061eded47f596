package courier

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

type param struct {
	key, value string
}

// Params accumulates URL query parameters in insertion order.
//
// Once Build has been called the builder is sealed: further Add and AddInt
// calls are ignored and Sealed reports true. A Request calls Build when it is
// sent, so parameters added after sending never reach the wire.
type Params struct {
	mu     sync.Mutex
	pairs  []param
	sealed bool
}

// Add stringifies value and appends the percent-encoded pair.
func (p *Params) Add(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sealed {
		return
	}
	p.pairs = append(p.pairs, param{
		key:   url.QueryEscape(key),
		value: url.QueryEscape(stringify(value)),
	})
}

// AddInt appends key with a base 10 integer value.
func (p *Params) AddInt(key string, value int) {
	p.Add(key, value)
}

// Len returns the number of accumulated pairs.
func (p *Params) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pairs)
}

func (p *Params) Sealed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sealed
}

// Build joins base with the accumulated pairs and seals the builder. Without
// pairs base is returned unchanged. A base that already carries a query gets
// the pairs appended with '&'.
func (p *Params) Build(base string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sealed = true
	if len(p.pairs) == 0 {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	sep := byte('?')
	if strings.IndexByte(base, '?') >= 0 {
		sep = '&'
		if strings.HasSuffix(base, "?") || strings.HasSuffix(base, "&") {
			sep = 0
		}
	}
	for i, kv := range p.pairs {
		if i > 0 {
			b.WriteByte('&')
		} else if sep != 0 {
			b.WriteByte(sep)
		}
		b.WriteString(kv.key)
		b.WriteByte('=')
		b.WriteString(kv.value)
	}
	return b.String()
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int:
		return strconv.Itoa(t)
	case int8:
		return strconv.FormatInt(int64(t), 10)
	case int16:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint8:
		return strconv.FormatUint(uint64(t), 10)
	case uint16:
		return strconv.FormatUint(uint64(t), 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}
