package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/erazemk/sledljivost/internal/db"
	"github.com/erazemk/sledljivost/internal/ledger"
	"github.com/erazemk/sledljivost/internal/model"
)

func TestCollectorCountsLedgerActivity(t *testing.T) {
	ctx := context.Background()
	l, err := ledger.Init(ctx, db.NewTestDB(t), "admin")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	c := New()
	l.AddObserver(c)

	if _, err := l.HarvestItem(ctx, "admin", model.Harvest{UPC: 1, FarmerID: "admin"}); err != nil {
		t.Fatalf("HarvestItem: %v", err)
	}
	if err := l.ProcessItem(ctx, "admin", 1); err != nil {
		t.Fatalf("ProcessItem: %v", err)
	}
	if err := l.ShipItem(ctx, "admin", 1); err == nil {
		t.Fatal("expected ship on a processed item to fail")
	}
	if err := l.ShipItem(ctx, "stranger", 1); err == nil {
		t.Fatal("expected ship by a stranger to fail")
	}

	if got := testutil.ToFloat64(c.transitions.WithLabelValues(string(model.EventHarvested))); got != 1 {
		t.Errorf("expected 1 harvest, got %v", got)
	}
	if got := testutil.ToFloat64(c.transitions.WithLabelValues(string(model.EventProcessed))); got != 1 {
		t.Errorf("expected 1 processed, got %v", got)
	}
	if got := testutil.ToFloat64(c.rejections.WithLabelValues("shipItem", "InvalidState")); got != 1 {
		t.Errorf("expected 1 InvalidState rejection, got %v", got)
	}
	if got := testutil.ToFloat64(c.rejections.WithLabelValues("shipItem", "Unauthorized")); got != 1 {
		t.Errorf("expected 1 Unauthorized rejection, got %v", got)
	}
	if got := testutil.ToFloat64(c.lastEvent); got != 2 {
		t.Errorf("expected last event seq 2, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.TransitionCommitted(model.Event{Seq: 7, Name: model.EventPacked})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`sledljivost_transitions_total{event="Packed"} 1`,
		`sledljivost_last_event_seq 7`,
		`go_goroutines`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}
