package transport

import (
	"time"

	"github.com/apex/log"
	"github.com/gregjones/httpcache"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/podded/courier"
)

// Config configures the HTTP transport. The zero value of a field disables
// the feature it controls; DefaultConfig fills in sensible values.
type Config struct {
	// UserAgent is combined with Descriptor as "<UserAgent> - <Descriptor>".
	UserAgent   string
	Descriptor  string
	AccessToken string

	Timeout time.Duration

	// RateLimit requests are allowed per RateInterval.
	RateLimit    int
	RateInterval time.Duration

	// RetryCount extra attempts are made for idempotent requests answered
	// with 429 or 5xx, RetryDelay apart.
	RetryCount int
	RetryDelay time.Duration

	Cache   httpcache.Cache
	Tracing bool

	Registerer prometheus.Registerer
	Logger     log.Interface
}

func DefaultConfig() Config {
	return Config{
		UserAgent:    courier.BuiltVersion.UserAgent(),
		Timeout:      30 * time.Second,
		RateLimit:    50,
		RateInterval: time.Second,
		RetryCount:   3,
		RetryDelay:   500 * time.Millisecond,
		Registerer:   prometheus.DefaultRegisterer,
		Logger:       log.Log,
	}
}
