package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRecordBeforeInit(t *testing.T) {
	// Instruments are nil until Init; recording must not panic.
	ctx := context.Background()
	if buildCounter == nil {
		RecordBuild(ctx, "month", time.Millisecond)
		RecordSourceFailure(ctx, "crm")
		RecordMutation(ctx, "create", "ok")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ctx := context.Background()
	handler, err := InitMeterProvider(ctx, "metrics-test")
	if err != nil {
		t.Fatalf("InitMeterProvider: %v", err)
	}
	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	RecordBuild(ctx, "month", 25*time.Millisecond)
	RecordSourceFailure(ctx, "crm")
	RecordMutation(ctx, "delete", "forbidden")
	AddWebsocketClient()
	defer RemoveWebsocketClient()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, name := range []string{
		"opsdesk_schedule_builds_total",
		"opsdesk_schedule_source_failures_total",
		"opsdesk_schedule_mutations_total",
		"opsdesk_websocket_clients",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestWebsocketClientsNeverNegative(t *testing.T) {
	start := WebsocketClients()
	AddWebsocketClient()
	RemoveWebsocketClient()
	for range start + 2 {
		RemoveWebsocketClient()
	}
	if got := WebsocketClients(); got != 0 {
		t.Errorf("WebsocketClients = %d, want 0", got)
	}
}
