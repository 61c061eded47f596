package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	ocprom "contrib.go.opencensus.io/exporter/prometheus"
	"github.com/apex/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opencensus.io/plugin/ochttp"
	"go.opencensus.io/stats/view"
	"golang.org/x/sync/errgroup"

	"github.com/podded/courier"
	"github.com/podded/courier/connector"
	"github.com/podded/courier/transport"
)

type fetchOptions struct {
	shape       string
	params      []string
	data        string
	hasData     bool
	query       string
	cache       string
	descriptor  string
	token       string
	rate        int
	retries     int
	timeout     time.Duration
	metricsAddr string
	trace       bool
}

func newFetchCmd() *cobra.Command {
	opts := fetchOptions{}
	cmd := &cobra.Command{
		Use:   "fetch URL...",
		Short: "Fetch one or more URLs and print the decoded responses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.hasData = cmd.Flags().Changed("data")
			return runFetch(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}

	defaults := transport.DefaultConfig()
	f := cmd.Flags()
	f.StringVarP(&opts.shape, "shape", "s", "json", "Expected response shape: any, html, image, image-bytes, json, xml, binary")
	f.StringArrayVarP(&opts.params, "param", "p", nil, "Query parameter as key=value, repeatable")
	f.StringVarP(&opts.data, "data", "d", "", "Send this text as the POST body")
	f.StringVar(&opts.query, "jq", "", "jq expression applied to json responses")
	f.StringVar(&opts.cache, "cache", envOr("COURIER_CACHE", "none"), "Response cache: none, memory, memcache://host:port, redis://host:port")
	f.StringVar(&opts.descriptor, "descriptor", envOr("COURIER_DESCRIPTOR", ""), "Appended to the User-Agent")
	f.StringVar(&opts.token, "token", envOr("COURIER_ACCESS_TOKEN", ""), "Bearer token")
	f.IntVar(&opts.rate, "rate", defaults.RateLimit, "Maximum requests per second, 0 for unlimited")
	f.IntVar(&opts.retries, "retries", defaults.RetryCount, "Retries for idempotent requests answered with 429 or 5xx")
	f.DurationVar(&opts.timeout, "timeout", defaults.Timeout, "Per attempt timeout")
	f.StringVar(&opts.metricsAddr, "metrics-addr", envOr("COURIER_METRICS_ADDR", ""), "Serve prometheus metrics on this address while fetching")
	f.BoolVar(&opts.trace, "trace", false, "Record opencensus http client stats")
	return cmd
}

func runFetch(ctx context.Context, out io.Writer, opts fetchOptions, urls []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	shape, err := courier.ParseShape(opts.shape)
	if err != nil {
		return err
	}

	cache, err := transport.OpenCache(opts.cache)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	cfg := transport.DefaultConfig()
	cfg.Descriptor = opts.descriptor
	cfg.AccessToken = opts.token
	cfg.RateLimit = opts.rate
	cfg.RetryCount = opts.retries
	cfg.Timeout = opts.timeout
	cfg.Cache = cache
	cfg.Tracing = opts.trace
	cfg.Registerer = reg

	if opts.metricsAddr != "" {
		if err := serveMetrics(opts.metricsAddr, reg, opts.trace); err != nil {
			return err
		}
	}

	tr, err := transport.New(cfg)
	if err != nil {
		return err
	}

	serial := connector.NewSerialDispatcher(len(urls))
	defer serial.Close()

	conn, err := connector.New("", tr,
		connector.WithRegisterer(reg),
		connector.WithDispatcher(serial),
		connector.WithStatusErrors(),
	)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, u := range urls {
		u := u
		g.Go(func() error {
			return fetchOne(ctx, conn, out, u, shape, opts, len(urls) > 1)
		})
	}
	return g.Wait()
}

func fetchOne(ctx context.Context, conn *connector.Connector, out io.Writer, u string, shape courier.Shape, opts fetchOptions, header bool) error {
	r := conn.Request(u, courier.WithShape(shape))
	for _, p := range opts.params {
		k, v, _ := strings.Cut(p, "=")
		r.AddParameter(k, v)
	}
	if opts.hasData {
		r.SetPostBody(opts.data)
	}

	done := make(chan error, 1)
	err := r.SendFor(ctx, courier.Target{
		Success: func() { done <- nil },
		Value: func(v *courier.Value) {
			if header {
				fmt.Fprintf(out, "==> %s <==\n", r.URL())
			}
			done <- printValue(out, v, opts.query)
		},
		Error: func(err error) { done <- err },
		AuthFailure: func(err *courier.AuthenticationError) {
			done <- errors.Wrap(err, "check --token")
		},
	})
	if err != nil {
		return err
	}

	select {
	case err = <-done:
	case <-ctx.Done():
		r.Cancel()
		err = <-done
	}
	return errors.Wrapf(err, "%s", u)
}

func printValue(out io.Writer, v *courier.Value, query string) error {
	switch v.Shape {
	case courier.ShapeJSON:
		results := []any{v.Tree}
		if query != "" {
			var err error
			if results, err = v.Query(query); err != nil {
				return err
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		for _, res := range results {
			if err := enc.Encode(res); err != nil {
				return errors.Wrap(err, "Failed to encode result")
			}
		}
		return nil
	case courier.ShapeHTML:
		doc, err := v.Document()
		if err != nil {
			return err
		}
		if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
			log.WithField("title", title).Debug("html document")
		}
		_, err = io.WriteString(out, v.Text)
		return err
	case courier.ShapeXML:
		printXML(out, v.XML, 0)
		return nil
	case courier.ShapeImage:
		b := v.Image.Bounds()
		_, err := fmt.Fprintf(out, "image %dx%d\n", b.Dx(), b.Dy())
		return err
	case courier.ShapeImageBytes, courier.ShapeBinary, courier.ShapeAny:
		_, err := out.Write(v.Bytes)
		return err
	}
	return errors.Errorf("cannot print %s value", v.Shape)
}

func printXML(out io.Writer, n *courier.XMLNode, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(out, "%s<%s", indent, n.Name.Local)
	for _, a := range n.Attrs {
		fmt.Fprintf(out, " %s=%s", a.Name.Local, strconv.Quote(a.Value))
	}
	fmt.Fprint(out, ">")
	if n.Text != "" {
		fmt.Fprintf(out, " %s", n.Text)
	}
	fmt.Fprintln(out)
	for _, c := range n.Children {
		printXML(out, c, depth+1)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, trace bool) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	if trace {
		if err := view.Register(ochttp.DefaultClientViews...); err != nil {
			return errors.Wrap(err, "Failed to register opencensus views")
		}
		pe, err := ocprom.NewExporter(ocprom.Options{Namespace: "courier", Registry: reg})
		if err != nil {
			return errors.Wrap(err, "Failed to create opencensus exporter")
		}
		view.RegisterExporter(pe)
	}

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.WithError(err).Warn("metrics server stopped")
		}
	}()
	log.WithField("addr", addr).Info("serving metrics")
	return nil
}
