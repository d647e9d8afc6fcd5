// Package metrics defines the Prometheus collectors for the chat client core
// and the feed service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Page load results.
const (
	ResultLoaded = "loaded"
	ResultEmpty  = "empty"
	ResultFailed = "failed"
)

// Send results.
const (
	ResultSent       = "sent"
	ResultSendFailed = "failed"
	OperationSend    = "send"
	OperationRetry   = "retry"
)

// Message origins recorded by the feed service.
const (
	OriginSelf   = "self"
	OriginOther  = "other"
	OriginImport = "import"
)

// Client holds the collectors updated by chat.Model. A nil *Client records nothing.
type Client struct {
	pageLoads   *prometheus.CounterVec
	loadLatency prometheus.Histogram
	sends       *prometheus.CounterVec
}

// NewClient creates the client collectors and registers them on reg when it is non-nil.
func NewClient(reg prometheus.Registerer) *Client {
	c := &Client{
		pageLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daychat_page_loads_total",
				Help: "Page loads attempted by the chat model, by result.",
			},
			[]string{"result"},
		),
		loadLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "daychat_page_load_duration_seconds",
				Help:    "Latency of feed page loads as seen by the chat model.",
				Buckets: prometheus.DefBuckets,
			},
		),
		sends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daychat_sends_total",
				Help: "Outgoing message submissions, by operation and result.",
			},
			[]string{"operation", "result"},
		),
	}
	if reg != nil {
		reg.MustRegister(c.pageLoads, c.loadLatency, c.sends)
	}
	return c
}

// PageLoad records one page load outcome.
func (c *Client) PageLoad(result string, took time.Duration) {
	if c == nil {
		return
	}
	c.pageLoads.WithLabelValues(result).Inc()
	c.loadLatency.Observe(took.Seconds())
}

// Send records one submission outcome.
func (c *Client) Send(retry, ok bool) {
	if c == nil {
		return
	}
	op := OperationSend
	if retry {
		op = OperationRetry
	}
	result := ResultSent
	if !ok {
		result = ResultSendFailed
	}
	c.sends.WithLabelValues(op, result).Inc()
}

// Feed holds the collectors updated by the feed service. A nil *Feed records nothing.
type Feed struct {
	pagesServed    prometheus.Counter
	messagesStored *prometheus.CounterVec
	requestErrors  *prometheus.CounterVec
}

// NewFeed creates the feed service collectors and registers them on reg when it is non-nil.
func NewFeed(reg prometheus.Registerer) *Feed {
	f := &Feed{
		pagesServed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "daychat_feed_pages_served_total",
				Help: "Message pages served by the feed service.",
			},
		),
		messagesStored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daychat_feed_messages_stored_total",
				Help: "Messages written to the feed store, by origin.",
			},
			[]string{"origin"},
		),
		requestErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daychat_feed_request_errors_total",
				Help: "Feed service requests that returned an error, by method.",
			},
			[]string{"method"},
		),
	}
	if reg != nil {
		reg.MustRegister(f.pagesServed, f.messagesStored, f.requestErrors)
	}
	return f
}

// PageServed records a served page.
func (f *Feed) PageServed() {
	if f == nil {
		return
	}
	f.pagesServed.Inc()
}

// MessagesStored records n messages written with the given origin.
func (f *Feed) MessagesStored(origin string, n int) {
	if f == nil || n <= 0 {
		return
	}
	f.messagesStored.WithLabelValues(origin).Add(float64(n))
}

// RequestError records a failed request for method.
func (f *Feed) RequestError(method string) {
	if f == nil {
		return
	}
	f.requestErrors.WithLabelValues(method).Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
