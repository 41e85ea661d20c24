package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := New("test")
	c.NodeDropped("llm")
	c.NodeDropped("llm")
	c.NodeDropped("memory")
	c.EdgeCreated("auto")
	c.SetSessions(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.drops.WithLabelValues("llm")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.edges.WithLabelValues("auto")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.sessions))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.NodeDropped("llm")
		c.DropIgnored()
		c.EdgeCreated("manual")
		c.Exported("json")
		c.SetSessions(1)
		c.WebhookUpdate("sage", "message")
		c.TelegramError("sendMessage")
	})
	assert.Nil(t, c.Registry())
}

func TestHandlerServesRegistry(t *testing.T) {
	c := New("test")
	c.Exported("yaml")

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `test_canvas_exports_total{format="yaml"} 1`)
}
