package metrics

import (
	"context"
	"sync"

	"github.com/prohmpiriya/greenloop-event-service/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// Registration counters
	RegistrationsTotal    *telemetry.Counter
	RegistrationsRejected *telemetry.Counter
	Deregistrations       *telemetry.Counter

	// Attendance counters
	AttendanceMarked   *telemetry.Counter
	AttendanceRejected *telemetry.Counter

	// Scheduler
	StatusTransitions *telemetry.Counter
	SweepFailures     *telemetry.Counter
	SweepDuration     *telemetry.Histogram

	// Publisher
	PublishFailures *telemetry.Counter
	PublishDropped  *telemetry.Counter
	PublishQueued   *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all event service metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	counters := []struct {
		target **telemetry.Counter
		opts   telemetry.MetricOpts
	}{
		{&RegistrationsTotal, telemetry.MetricOpts{Name: "event_registrations_total", Description: "Total number of accepted registrations", Unit: "1"}},
		{&RegistrationsRejected, telemetry.MetricOpts{Name: "event_registrations_rejected_total", Description: "Registrations rejected by the lifecycle, capacity or duplicate checks", Unit: "1"}},
		{&Deregistrations, telemetry.MetricOpts{Name: "event_deregistrations_total", Description: "Total number of removed registrations", Unit: "1"}},
		{&AttendanceMarked, telemetry.MetricOpts{Name: "event_attendance_marked_total", Description: "Total number of confirmed attendances", Unit: "1"}},
		{&AttendanceRejected, telemetry.MetricOpts{Name: "event_attendance_rejected_total", Description: "Scans rejected by token, status or registration checks", Unit: "1"}},
		{&StatusTransitions, telemetry.MetricOpts{Name: "event_status_transitions_total", Description: "Status transitions applied by the scheduler", Unit: "1"}},
		{&SweepFailures, telemetry.MetricOpts{Name: "event_scheduler_failures_total", Description: "Per-event failures during scheduler sweeps", Unit: "1"}},
		{&PublishFailures, telemetry.MetricOpts{Name: "event_publish_failures_total", Description: "Messages that failed after all retries", Unit: "1"}},
		{&PublishDropped, telemetry.MetricOpts{Name: "event_publish_dropped_total", Description: "Messages dropped because the publish queue was full", Unit: "1"}},
	}
	for _, c := range counters {
		if *c.target, err = telemetry.NewCounter(c.opts); err != nil {
			return err
		}
	}

	SweepDuration, err = telemetry.NewHistogram(telemetry.MetricOpts{
		Name:        "event_scheduler_sweep_duration_seconds",
		Description: "Duration of one scheduler sweep",
		Unit:        "s",
	})
	if err != nil {
		return err
	}

	PublishQueued, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "event_publish_queue_depth",
		Description: "Messages waiting in the async publish queue",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordRejection counts a rejected registration or scan by error code
func RecordRejection(ctx context.Context, counter *telemetry.Counter, code string) {
	counter.Inc(ctx, attribute.String("code", code))
}

// RecordTransition counts an applied status transition
func RecordTransition(ctx context.Context, to string) {
	StatusTransitions.Inc(ctx, attribute.String("to", to))
}
