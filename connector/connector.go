package connector

import (
	"context"
	"strings"

	"github.com/apex/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/podded/courier"
)

type (
	// Connector creates Requests against one base URL and installs the
	// completion hook that classifies, decodes, logs and counts them.
	Connector struct {
		BaseURL string

		transport  courier.Transport
		dispatcher courier.Dispatcher
		logger     log.Interface
		registerer prometheus.Registerer
		deliveries *prometheus.CounterVec

		statusErrors bool
	}

	Option func(c *Connector)
)

func WithLogger(l log.Interface) Option {
	return func(c *Connector) { c.logger = l }
}

// WithRegisterer sets where the delivery counter is registered. nil keeps
// the counter private.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *Connector) { c.registerer = r }
}

// WithDispatcher makes every delivery of the connector's requests run
// through d, for example a SerialDispatcher.
func WithDispatcher(d courier.Dispatcher) Option {
	return func(c *Connector) { c.dispatcher = d }
}

// WithStatusErrors makes the connector's requests fail error statuses with a
// *courier.StatusError instead of decoding their bodies.
func WithStatusErrors() Option {
	return func(c *Connector) { c.statusErrors = true }
}

func New(baseURL string, t courier.Transport, opts ...Option) (conn *Connector, err error) {
	if t == nil {
		return nil, courier.ErrNoTransport
	}

	conn = &Connector{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		transport:  t,
		dispatcher: courier.Inline,
		logger:     log.Log,
		registerer: prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(conn)
	}
	conn.logger = conn.logger.WithField("component", "connector")

	conn.deliveries, err = newDeliveryCounter(conn.registerer)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// URL joins path onto the base URL. Absolute URLs are returned unchanged.
func (c *Connector) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if path != "" && path[0] != '/' {
		path = "/" + path
	}
	return c.BaseURL + path
}

// Request creates a GET request for path expecting JSON.
func (c *Connector) Request(path string, opts ...courier.Option) *courier.Request {
	base := []courier.Option{
		courier.WithHook(c.complete),
		courier.WithDispatcher(c.dispatcher),
	}
	if c.statusErrors {
		base = append(base, courier.WithStatusErrors())
	}
	return courier.NewRequest(c.URL(path), c.transport, append(base, opts...)...)
}

func (c *Connector) Get(path string, shape courier.Shape) *courier.Request {
	return c.Request(path, courier.WithShape(shape))
}

func (c *Connector) Post(path, body string, shape courier.Shape) *courier.Request {
	r := c.Request(path, courier.WithShape(shape))
	r.SetPostBody(body)
	return r
}

// complete is the default completion hook of every request the connector
// creates. The outcome is counted and logged before the target hears of it.
func (c *Connector) complete(r *courier.Request, resp *courier.Response) {
	courier.Classify(r, resp)

	outcome := resp.Outcome()
	c.deliveries.WithLabelValues(outcome.String()).Inc()

	entry := c.logger.WithFields(log.Fields{
		"id":       r.ID(),
		"url":      r.URL(),
		"status":   resp.StatusCode,
		"outcome":  outcome.String(),
		"cached":   resp.FromCache,
		"duration": resp.Duration.String(),
	})
	if resp.Err != nil {
		entry.WithError(resp.Err).Warn("request failed")
	} else {
		entry.Debug("request delivered")
	}

	courier.Deliver(r, resp)
}

// Ping makes sure that the server answers on /ping with a non error status.
func (c *Connector) Ping(ctx context.Context) error {
	r := c.Request("/ping", courier.WithShape(courier.ShapeAny), courier.WithStatusErrors())

	result := make(chan error, 1)
	err := r.SendFor(ctx, courier.Target{
		Success: func() { result <- nil },
		Error:   func(err error) { result <- err },
	})
	if err != nil {
		return err
	}

	select {
	case err = <-result:
	case <-ctx.Done():
		r.Cancel()
		err = <-result
	}
	if err != nil {
		return errors.Wrap(err, "Failed to contact server")
	}
	return nil
}
