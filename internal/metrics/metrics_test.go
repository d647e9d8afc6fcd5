package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestClientCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewClient(reg)

	c.PageLoad(ResultLoaded, 10*time.Millisecond)
	c.PageLoad(ResultFailed, 5*time.Millisecond)
	c.PageLoad(ResultFailed, 5*time.Millisecond)
	c.Send(false, true)
	c.Send(true, false)

	if got := testutil.ToFloat64(c.pageLoads.WithLabelValues(ResultFailed)); got != 2 {
		t.Errorf("failed loads = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.pageLoads.WithLabelValues(ResultLoaded)); got != 1 {
		t.Errorf("loaded = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.sends.WithLabelValues(OperationRetry, ResultSendFailed)); got != 1 {
		t.Errorf("failed retries = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.loadLatency); got != 1 {
		t.Errorf("latency series = %d, want 1", got)
	}
}

func TestNilCollectorsAreNoops(t *testing.T) {
	var c *Client
	c.PageLoad(ResultLoaded, time.Second)
	c.Send(false, true)

	var f *Feed
	f.PageServed()
	f.MessagesStored(OriginSelf, 1)
	f.RequestError("LoadMessages")
}

func TestFeedHandlerExposesCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := NewFeed(reg)
	f.PageServed()
	f.MessagesStored(OriginImport, 3)
	f.MessagesStored(OriginImport, 0)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"daychat_feed_pages_served_total 1",
		`daychat_feed_messages_stored_total{origin="import"} 3`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
