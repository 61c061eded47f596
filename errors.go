package courier

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	// ErrCanceled is wrapped in the TransportError delivered to a cancelled Request.
	ErrCanceled = errors.New("request canceled")

	ErrAlreadySent   = errors.New("request already sent")
	ErrInvalidTarget = errors.New("target needs an Error callback and a Success or Value callback")
	ErrNoTransport   = errors.New("request has no transport")
)

type (
	// TransportError is a failure of the network exchange itself: dial, DNS,
	// TLS, timeout or cancellation. Err is the transport's error unchanged.
	TransportError struct {
		Method string
		URL    string
		Err    error
	}

	// ContentMismatchError means the response content type does not belong
	// to the expected shape's family.
	ContentMismatchError struct {
		Expected    Shape
		ContentType string
	}

	// DecodeError means the content type matched but the body could not be
	// parsed as the expected shape.
	DecodeError struct {
		Shape Shape
		Err   error
	}

	// AuthenticationError is delivered through Target.AuthFailure when the
	// server answers 401 or 407.
	AuthenticationError struct {
		StatusCode int
		URL        string
	}

	// StatusError is any other status code of 400 and above.
	StatusError struct {
		StatusCode  int
		ContentType string
		URL         string
	}
)

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Cause() error { return e.Err }

func (e *ContentMismatchError) Error() string {
	ct := e.ContentType
	if ct == "" {
		ct = "no content type"
	}
	return fmt.Sprintf("expected %s response, got %s", e.Expected, ct)
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s response: %v", e.Shape, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Cause() error { return e.Err }

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication required (status %d %s)", e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsAuthStatus reports whether a status code means the credentials were
// missing or rejected. Both the origin (401) and proxy (407) challenges count.
func IsAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusProxyAuthRequired
}

// IsCanceled checks if the error comes from Request.Cancel or from the
// cancellation of the context the request was sent with.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

// IsAuthenticationError checks if the error is an authentication error.
func IsAuthenticationError(err error) bool {
	var e *AuthenticationError
	return errors.As(err, &e)
}

// IsContentMismatch checks if the error is a content type mismatch.
func IsContentMismatch(err error) bool {
	var e *ContentMismatchError
	return errors.As(err, &e)
}

// IsDecodeError checks if the error is a decode failure.
func IsDecodeError(err error) bool {
	var e *DecodeError
	return errors.As(err, &e)
}

// IsTransportError checks if the error is a transport failure.
func IsTransportError(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}
