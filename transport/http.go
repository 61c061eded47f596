package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/beefsack/go-rate"
	"github.com/gregjones/httpcache"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opencensus.io/plugin/ochttp"

	"github.com/podded/courier"
)

type (
	// HTTP is a courier.Transport backed by net/http, with optional response
	// caching, client side rate limiting and retries of idempotent requests.
	HTTP struct {
		UserAgent   string
		AccessToken string
		Client      *http.Client
		RateLimiter *rate.RateLimiter
		RetryCount  int
		RetryDelay  time.Duration

		histogram *prometheus.HistogramVec
		logger    log.Interface
	}
)

var _ courier.Transport = (*HTTP)(nil)

func New(cfg Config) (h *HTTP, err error) {
	var rt http.RoundTripper = &http.Transport{Proxy: http.ProxyFromEnvironment}
	if cfg.Tracing {
		rt = &ochttp.Transport{Base: rt}
	}
	if cfg.Cache != nil {
		ct := httpcache.NewTransport(cfg.Cache)
		ct.Transport = rt
		rt = ct
	}

	histogram, err := newAttemptHistogram(cfg.Registerer)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Log
	}

	h = &HTTP{
		UserAgent:   userAgent(cfg.UserAgent, cfg.Descriptor),
		AccessToken: cfg.AccessToken,
		Client:      &http.Client{Transport: rt, Timeout: cfg.Timeout},
		RetryCount:  cfg.RetryCount,
		RetryDelay:  cfg.RetryDelay,
		histogram:   histogram,
		logger:      logger.WithField("component", "transport"),
	}
	if cfg.RateLimit > 0 {
		interval := cfg.RateInterval
		if interval <= 0 {
			interval = time.Second
		}
		h.RateLimiter = rate.New(cfg.RateLimit, interval)
	}
	return h, nil
}

func userAgent(agent, descriptor string) string {
	if agent == "" {
		agent = courier.BuiltVersion.UserAgent()
	}
	if len(descriptor) > 0 {
		return fmt.Sprintf("%s - %s", agent, descriptor)
	}
	return fmt.Sprintf("%s - naked", agent)
}

// Execute performs the call. Responses with any status code are returned
// as responses; only failures to complete an exchange are errors.
func (h *HTTP) Execute(ctx context.Context, call *courier.Call) (*courier.RawResponse, error) {
	idempotent := call.Method == http.MethodGet || call.Method == http.MethodHead || call.Method == http.MethodOptions

	retries := 0
	for {
		// Block on our rate limiter
		if err := h.wait(ctx); err != nil {
			return nil, err
		}

		req, err := h.newRequest(ctx, call)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		res, err := h.Client.Do(req)
		if err != nil {
			h.logger.WithError(err).WithField("url", call.URL).Warn("Error making request")
			return nil, errors.Wrap(err, "Error trying to execute request")
		}
		body, err := io.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			return nil, errors.Wrap(err, "Error reading response")
		}
		h.histogram.WithLabelValues(strconv.Itoa(res.StatusCode)).Observe(time.Since(start).Seconds())

		// 429 and 5xx are worth retrying when repeating the call is safe,
		// everything else goes straight back to the caller.
		switch {
		case res.StatusCode == http.StatusTooManyRequests:
			fallthrough
		case res.StatusCode >= http.StatusInternalServerError:
			if idempotent && retries < h.RetryCount {
				retries++
				h.logger.WithFields(log.Fields{
					"url":     call.URL,
					"status":  res.StatusCode,
					"attempt": retries,
				}).Info("Retrying request")
				if err := sleep(ctx, h.RetryDelay); err != nil {
					return nil, err
				}
				continue
			}
		}

		return &courier.RawResponse{
			StatusCode:  res.StatusCode,
			ContentType: res.Header.Get("Content-Type"),
			Header:      res.Header,
			Body:        body,
			FromCache:   res.Header.Get(httpcache.XFromCache) != "",
		}, nil
	}
}

func (h *HTTP) newRequest(ctx context.Context, call *courier.Call) (*http.Request, error) {
	var br io.Reader
	if call.Body != nil {
		br = bytes.NewReader(call.Body)
	}
	req, err := http.NewRequestWithContext(ctx, call.Method, call.URL, br)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to build request")
	}
	for k, vs := range call.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", h.UserAgent)

	// If we have an access token then add it as a header.
	if len(h.AccessToken) > 0 && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", h.AccessToken))
	}
	if call.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req, nil
}

func (h *HTTP) wait(ctx context.Context) error {
	if h.RateLimiter == nil {
		return ctx.Err()
	}
	for {
		ok, remaining := h.RateLimiter.Try()
		if ok {
			return nil
		}
		if remaining <= 0 {
			remaining = time.Millisecond
		}
		if err := sleep(ctx, remaining); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
