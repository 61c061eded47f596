package courier

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type (
	// Response wraps what the transport returned plus the outcome of the
	// completion hook. It is read-only once the Request has completed.
	Response struct {
		StatusCode  int
		ContentType string
		Header      http.Header
		Body        []byte
		FromCache   bool
		Duration    time.Duration

		// Value is set when decoding succeeded, Err when the request failed
		// at any stage.
		Value *Value
		Err   error
	}

	// CompletionHook processes a finished exchange and notifies the target
	// through one of the Request's Notify methods. resp.Err is already set
	// to a *TransportError when the transport failed.
	CompletionHook func(r *Request, resp *Response)

	Option func(r *Request)
)

// Request is an HTTP exchange with a declared response shape and a single
// delivery of its outcome. Configure it, then call SendFor or Send once.
// Configuration calls made after sending are ignored.
type Request struct {
	id        string
	url       string
	transport Transport

	mu       sync.Mutex
	shape    Shape
	body     *string
	header   http.Header
	sent     bool
	finalURL string
	cancel   context.CancelFunc
	response *Response

	params       Params
	side         sideChannel
	hook         CompletionHook
	dispatcher   Dispatcher
	statusErrors bool
	d            *delivery
}

func WithShape(s Shape) Option {
	return func(r *Request) { r.shape = s }
}

// WithHook replaces DefaultCompletion.
func WithHook(h CompletionHook) Option {
	return func(r *Request) { r.hook = h }
}

func WithDispatcher(d Dispatcher) Option {
	return func(r *Request) { r.dispatcher = d }
}

// WithStatusErrors fails every status of 400 and above, other than the
// authentication ones, with a *StatusError before the body is looked at.
// Without it such responses are matched and decoded like any other.
func WithStatusErrors() Option {
	return func(r *Request) { r.statusErrors = true }
}

// NewRequest configures a request for url executed by t. The expected shape
// defaults to ShapeJSON.
func NewRequest(url string, t Transport, opts ...Option) *Request {
	r := &Request{
		id:         uuid.NewString(),
		url:        url,
		transport:  t,
		shape:      ShapeJSON,
		header:     make(http.Header),
		hook:       DefaultCompletion,
		dispatcher: Inline,
		d:          newDelivery(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Request) ID() string { return r.id }

// URL returns the final URL once sent, the base URL before.
func (r *Request) URL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent {
		return r.finalURL
	}
	return r.url
}

func (r *Request) ExpectedShape() Shape {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shape
}

func (r *Request) SetExpectedShape(s Shape) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sent {
		r.shape = s
	}
}

// SetPostBody marks the request as a POST carrying text.
func (r *Request) SetPostBody(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sent {
		r.body = &text
	}
}

func (r *Request) PostBody() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.body == nil {
		return "", false
	}
	return *r.body, true
}

func (r *Request) Method() string {
	if _, ok := r.PostBody(); ok {
		return http.MethodPost
	}
	return http.MethodGet
}

func (r *Request) SetHeader(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sent {
		r.header.Set(key, value)
	}
}

// AddParameter appends key=value to the query string. Ignored after sending.
func (r *Request) AddParameter(key string, value any) {
	r.params.Add(key, value)
}

func (r *Request) AddIntParameter(key string, value int) {
	r.params.AddInt(key, value)
}

// State reports the delivery state.
func (r *Request) State() State {
	return r.d.current()
}

// Done is closed once the outcome has been delivered.
func (r *Request) Done() <-chan struct{} {
	return r.d.done
}

// Wait blocks until delivery or until ctx ends.
func (r *Request) Wait(ctx context.Context) error {
	select {
	case <-r.d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Response returns the completed response, nil while pending. The
// completion hook owns the response until it notifies an outcome.
func (r *Request) Response() *Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.d.current() == Pending {
		return nil
	}
	return r.response
}

// SendFor sends the request and delivers its outcome to target.
func (r *Request) SendFor(ctx context.Context, target Target) error {
	if !target.valid() {
		return ErrInvalidTarget
	}
	return r.send(ctx, &target)
}

// Send sends the request without a target. The response is still
// classified and decoded but nobody is notified.
func (r *Request) Send(ctx context.Context) error {
	return r.send(ctx, nil)
}

func (r *Request) send(ctx context.Context, target *Target) error {
	r.mu.Lock()
	if r.sent {
		r.mu.Unlock()
		return ErrAlreadySent
	}
	if r.transport == nil {
		r.mu.Unlock()
		return ErrNoTransport
	}
	r.sent = true
	r.d.target = target
	r.finalURL = r.params.Build(r.url)

	call := &Call{
		Method: http.MethodGet,
		URL:    r.finalURL,
		Header: r.header.Clone(),
	}
	if r.body != nil {
		call.Method = http.MethodPost
		call.Body = []byte(*r.body)
	}
	if call.Header.Get("Accept") == "" {
		call.Header.Set("Accept", r.shape.Accept())
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	go r.run(ctx, cancel, call)
	return nil
}

func (r *Request) run(ctx context.Context, cancel context.CancelFunc, call *Call) {
	defer cancel()

	start := time.Now()
	raw, err := r.transport.Execute(ctx, call)
	resp := &Response{Duration: time.Since(start)}
	if err != nil {
		resp.Err = &TransportError{Method: call.Method, URL: call.URL, Err: err}
	} else if raw == nil {
		resp.Err = &TransportError{Method: call.Method, URL: call.URL, Err: errors.New("transport returned no response")}
	} else {
		resp.StatusCode = raw.StatusCode
		resp.ContentType = raw.ContentType
		resp.Header = raw.Header
		resp.Body = raw.Body
		resp.FromCache = raw.FromCache
	}

	r.dispatcher.Dispatch(func() {
		r.mu.Lock()
		if r.d.current() != Pending {
			// cancelled while the transport was running
			r.mu.Unlock()
			return
		}
		r.response = resp
		r.mu.Unlock()
		r.hook(r, resp)
	})
}

// Cancel stops an in-flight request. It delivers a *TransportError wrapping
// ErrCanceled and reports true if the request was still pending; it does
// nothing for requests that were never sent or have already completed.
func (r *Request) Cancel() bool {
	r.mu.Lock()
	if !r.sent || !r.d.finish(Failed) {
		r.mu.Unlock()
		return false
	}
	method := http.MethodGet
	if r.body != nil {
		method = http.MethodPost
	}
	err := &TransportError{Method: method, URL: r.finalURL, Err: ErrCanceled}
	r.response = &Response{Err: err}
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	r.dispatcher.Dispatch(func() { r.d.deliverError(err) })
	return true
}

// NotifySuccess completes the request without a value.
func (r *Request) NotifySuccess() {
	if r.d.finish(Succeeded) {
		r.d.deliverSuccess(nil)
	}
}

// NotifyValue completes the request with v, delivered to Target.Value when
// registered and to Target.Success otherwise.
func (r *Request) NotifyValue(v *Value) {
	if r.d.finish(Succeeded) {
		r.d.deliverSuccess(v)
	}
}

func (r *Request) NotifyError(err error) {
	if r.d.finish(Failed) {
		r.d.deliverError(err)
	}
}

func (r *Request) NotifyAuthFailure(err *AuthenticationError) {
	if r.d.finish(AuthFailed) {
		r.d.deliverAuthFailure(err)
	}
}

// DefaultCompletion classifies and decodes the response and notifies the
// target of exactly one outcome.
func DefaultCompletion(r *Request, resp *Response) {
	Classify(r, resp)
	Deliver(r, resp)
}

// Classify runs the status, content type and decoding checks and records
// the result in resp.Value or resp.Err. It notifies nobody.
func Classify(r *Request, resp *Response) {
	if resp.Err != nil {
		return
	}

	if IsAuthStatus(resp.StatusCode) {
		resp.Err = &AuthenticationError{StatusCode: resp.StatusCode, URL: r.URL()}
		return
	}
	if r.statusErrors && resp.StatusCode >= http.StatusBadRequest {
		resp.Err = &StatusError{StatusCode: resp.StatusCode, ContentType: resp.ContentType, URL: r.URL()}
		return
	}

	shape := r.ExpectedShape()
	if !shape.Matches(resp.ContentType) {
		resp.Err = &ContentMismatchError{Expected: shape, ContentType: resp.ContentType}
		return
	}

	if r.d.current() != Pending {
		// cancelled while the hook was running
		resp.Err = &TransportError{Method: r.Method(), URL: r.URL(), Err: ErrCanceled}
		return
	}
	v, err := Decode(shape, resp.Body)
	if err != nil {
		resp.Err = err
		return
	}
	resp.Value = v
}

// Deliver notifies the target according to a classified response.
func Deliver(r *Request, resp *Response) {
	var auth *AuthenticationError
	switch {
	case resp.Err == nil:
		r.NotifyValue(resp.Value)
	case errors.As(resp.Err, &auth):
		r.NotifyAuthFailure(auth)
	default:
		r.NotifyError(resp.Err)
	}
}

// Outcome is the state a classified response leads to.
func (resp *Response) Outcome() State {
	switch {
	case resp.Err == nil:
		return Succeeded
	case IsAuthenticationError(resp.Err):
		return AuthFailed
	}
	return Failed
}
