package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

var (
	initOnce sync.Once

	buildCounter    metric.Int64Counter
	buildDuration   metric.Float64Histogram
	sourceFailures  metric.Int64Counter
	mutationCounter metric.Int64Counter
	wsClientsGauge  metric.Int64ObservableGauge

	wsClients   int64
	wsClientsMu sync.Mutex
)

// Init creates the instruments. Call after InitMeterProvider; later calls
// are no-ops. Record functions do nothing until Init succeeds.
func Init() error {
	var err error
	initOnce.Do(func() {
		m := Meter()
		buildCounter, err = m.Int64Counter("opsdesk_schedule_builds_total",
			metric.WithDescription("Schedule feeds built, by view"))
		if err != nil {
			return
		}
		buildDuration, err = m.Float64Histogram("opsdesk_schedule_build_duration_seconds",
			metric.WithDescription("Time to build a schedule feed"))
		if err != nil {
			return
		}
		sourceFailures, err = m.Int64Counter("opsdesk_schedule_source_failures_total",
			metric.WithDescription("Schedule builds degraded by a failing source"))
		if err != nil {
			return
		}
		mutationCounter, err = m.Int64Counter("opsdesk_schedule_mutations_total",
			metric.WithDescription("Create and delete requests through the schedule, by outcome"))
		if err != nil {
			return
		}
		wsClientsGauge, err = m.Int64ObservableGauge("opsdesk_websocket_clients",
			metric.WithDescription("Connected websocket clients"))
		if err != nil {
			return
		}
		_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(wsClientsGauge, WebsocketClients())
			return nil
		}, wsClientsGauge)
	})
	return err
}

// RecordBuild records one month grid or day detail build.
func RecordBuild(ctx context.Context, view string, d time.Duration) {
	attrs := metric.WithAttributes(AttrView.String(view))
	if buildCounter != nil {
		buildCounter.Add(ctx, 1, attrs)
	}
	if buildDuration != nil {
		buildDuration.Record(ctx, d.Seconds(), attrs)
	}
}

// RecordSourceFailure counts a degraded source.
func RecordSourceFailure(ctx context.Context, source string) {
	if sourceFailures == nil {
		return
	}
	sourceFailures.Add(ctx, 1, metric.WithAttributes(AttrSource.String(source)))
}

// RecordMutation counts a create or delete attempt. outcome is "ok",
// "invalid", "forbidden", "not_found" or "error".
func RecordMutation(ctx context.Context, op, outcome string) {
	if mutationCounter == nil {
		return
	}
	mutationCounter.Add(ctx, 1, metric.WithAttributes(
		AttrOperation.String(op),
		AttrOutcome.String(outcome),
	))
}

func AddWebsocketClient() {
	wsClientsMu.Lock()
	wsClients++
	wsClientsMu.Unlock()
}

func RemoveWebsocketClient() {
	wsClientsMu.Lock()
	if wsClients > 0 {
		wsClients--
	}
	wsClientsMu.Unlock()
}

// WebsocketClients returns the current client count.
func WebsocketClients() int64 {
	wsClientsMu.Lock()
	defer wsClientsMu.Unlock()
	return wsClients
}
