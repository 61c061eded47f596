package courier

import (
	"context"
	"net/http"
)

type (
	// Call is what a Request hands to its Transport.
	Call struct {
		Method string
		URL    string
		Header http.Header
		Body   []byte
	}

	// RawResponse is what a Transport hands back. Status codes of any value,
	// 4xx and 5xx included, are responses and not errors.
	RawResponse struct {
		StatusCode  int
		ContentType string
		Header      http.Header
		Body        []byte
		FromCache   bool
	}
)

// Transport performs the network exchange. Execute blocks until the
// exchange finishes or ctx is cancelled; a Request always calls it from its
// own goroutine.
type Transport interface {
	Execute(ctx context.Context, call *Call) (*RawResponse, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, call *Call) (*RawResponse, error)

func (f TransportFunc) Execute(ctx context.Context, call *Call) (*RawResponse, error) {
	return f(ctx, call)
}

// Dispatcher runs completion work. Inline runs it on the transport goroutine.
type Dispatcher interface {
	Dispatch(fn func())
}

type inline struct{}

func (inline) Dispatch(fn func()) { fn() }

var Inline Dispatcher = inline{}
