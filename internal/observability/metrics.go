// Package observability exposes the service's Prometheus metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Collector bundles the service metrics. All recorder methods are safe to
// call on a nil *Collector.
type Collector struct {
	gatherer prometheus.Gatherer

	UpstreamRequests  *prometheus.CounterVec
	UpstreamDurations *prometheus.HistogramVec
	Fallbacks         *prometheus.CounterVec
	CacheLookups      *prometheus.CounterVec
	CacheRefreshes    *prometheus.CounterVec
	CachePurged       prometheus.Counter

	LiveTicks       *prometheus.CounterVec
	LiveSubscribers prometheus.Gauge

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
	RPCRequests   *prometheus.CounterVec
	RPCDurations  *prometheus.HistogramVec
}

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.UpstreamRequests, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "neo_upstream_requests_total",
		Help: "Calls to the NASA NEO API, labeled by operation and outcome.",
	}, []string{"op", "outcome"}), "neo_upstream_requests_total"); err != nil {
		return nil, err
	}
	if c.UpstreamDurations, err = registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "neo_upstream_request_duration_seconds",
		Help:    "NASA NEO API latency in seconds.",
		Buckets: latencyBuckets,
	}, []string{"op"}), "neo_upstream_request_duration_seconds"); err != nil {
		return nil, err
	}
	if c.Fallbacks, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "neo_fallback_total",
		Help: "Requests answered from the fallback dataset, labeled by operation and reason.",
	}, []string{"op", "reason"}), "neo_fallback_total"); err != nil {
		return nil, err
	}
	if c.CacheLookups, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "neo_cache_lookups_total",
		Help: "Query cache lookups, labeled by operation and result (hit, miss, stale, error).",
	}, []string{"op", "result"}), "neo_cache_lookups_total"); err != nil {
		return nil, err
	}
	if c.CacheRefreshes, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "neo_cache_refreshes_total",
		Help: "Cache warmer page refreshes, labeled by outcome.",
	}, []string{"outcome"}), "neo_cache_refreshes_total"); err != nil {
		return nil, err
	}
	if c.CachePurged, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "neo_cache_purged_rows_total",
		Help: "Expired cache rows removed by the warmer.",
	}), "neo_cache_purged_rows_total"); err != nil {
		return nil, err
	}
	if c.LiveTicks, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "live_metrics_snapshots_total",
		Help: "Published live metrics snapshots, labeled by trigger.",
	}, []string{"trigger"}), "live_metrics_snapshots_total"); err != nil {
		return nil, err
	}
	if c.LiveSubscribers, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "live_metrics_subscribers",
		Help: "Current number of live metrics subscribers.",
	}), "live_metrics_subscribers"); err != nil {
		return nil, err
	}
	if c.HTTPRequests, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Handled HTTP requests, labeled by method, route and status code.",
	}, []string{"method", "route", "code"}), "http_requests_total"); err != nil {
		return nil, err
	}
	if c.HTTPDurations, err = registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: latencyBuckets,
	}, []string{"method", "route"}), "http_request_duration_seconds"); err != nil {
		return nil, err
	}
	if c.RPCRequests, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grpc_requests_total",
		Help: "Handled unary RPCs, labeled by service, method and gRPC status code.",
	}, []string{"service", "method", "code"}), "grpc_requests_total"); err != nil {
		return nil, err
	}
	if c.RPCDurations, err = registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grpc_request_duration_seconds",
		Help:    "Unary RPC latency in seconds.",
		Buckets: latencyBuckets,
	}, []string{"service", "method"}), "grpc_request_duration_seconds"); err != nil {
		return nil, err
	}

	return c, nil
}

// ObserveUpstream records one NASA API call.
func (c *Collector) ObserveUpstream(op string, d time.Duration, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.UpstreamRequests.WithLabelValues(op, outcome).Inc()
	c.UpstreamDurations.WithLabelValues(op).Observe(d.Seconds())
}

func (c *Collector) RecordFallback(op, reason string) {
	if c == nil {
		return
	}
	c.Fallbacks.WithLabelValues(op, reason).Inc()
}

func (c *Collector) RecordCacheLookup(op, result string) {
	if c == nil {
		return
	}
	c.CacheLookups.WithLabelValues(op, result).Inc()
}

func (c *Collector) RecordRefresh(err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.CacheRefreshes.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordPurge(rows int64) {
	if c == nil || rows <= 0 {
		return
	}
	c.CachePurged.Add(float64(rows))
}

func (c *Collector) RecordLiveTick(trigger string) {
	if c == nil {
		return
	}
	c.LiveTicks.WithLabelValues(trigger).Inc()
}

func (c *Collector) SetLiveSubscribers(n int) {
	if c == nil {
		return
	}
	c.LiveSubscribers.Set(float64(n))
}

// ObserveHTTP records one HTTP request. route is the matched route pattern,
// not the raw path.
func (c *Collector) ObserveHTTP(method, route string, code int, d time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.HTTPDurations.WithLabelValues(method, route).Observe(d.Seconds())
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *Collector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		c.RPCRequests.WithLabelValues(service, method, code).Inc()
		c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod parses "/pkg.Service/Method" into "Service" and "Method",
// returning "unknown" for parts it cannot find.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
