package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.OrderCreated("takeaway", "checkout")
	m.StatusTransition("pending", "preparing")
	m.CacheLookup("kanban", "hit")
	m.Invalidation("created")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`comanda_orders_created_total{order_type="takeaway",surface="checkout"} 1`,
		`comanda_order_status_transitions_total{from="pending",to="preparing"} 1`,
		`comanda_view_cache_lookups_total{result="hit",topic="kanban"} 1`,
		`comanda_view_invalidations_total{reason="created"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.OrderCreated("delivery", "admin")
	m.ClientConnected()
	m.ClientDisconnected()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for nil metrics, got %d", rec.Code)
	}
}
