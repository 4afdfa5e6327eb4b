package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth"

// Metrics counts auth outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	logins        metric.Int64Counter
	lockouts      metric.Int64Counter
	registrations metric.Int64Counter
	refreshes     metric.Int64Counter
	auditDropped  metric.Int64Counter
	auditFailed   metric.Int64Counter
}

// NewMetrics builds the counters on meter, or on the global provider when meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}

	var (
		m   Metrics
		err error
	)
	if m.logins, err = meter.Int64Counter("auth.logins",
		metric.WithDescription("Login attempts by outcome.")); err != nil {
		return nil, err
	}
	if m.lockouts, err = meter.Int64Counter("auth.lockouts",
		metric.WithDescription("Accounts moved into the locked state.")); err != nil {
		return nil, err
	}
	if m.registrations, err = meter.Int64Counter("auth.registrations",
		metric.WithDescription("Accounts registered.")); err != nil {
		return nil, err
	}
	if m.refreshes, err = meter.Int64Counter("auth.refreshes",
		metric.WithDescription("Refresh token rotations by outcome.")); err != nil {
		return nil, err
	}
	if m.auditDropped, err = meter.Int64Counter("auth.audit.dropped",
		metric.WithDescription("Audit events dropped because the buffer was full.")); err != nil {
		return nil, err
	}
	if m.auditFailed, err = meter.Int64Counter("auth.audit.failed",
		metric.WithDescription("Audit events the sink failed to persist.")); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) login(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) lockout(ctx context.Context) {
	if m == nil {
		return
	}
	m.lockouts.Add(ctx, 1)
}

func (m *Metrics) registration(ctx context.Context) {
	if m == nil {
		return
	}
	m.registrations.Add(ctx, 1)
}

func (m *Metrics) refresh(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) auditDrop(ctx context.Context) {
	if m == nil {
		return
	}
	m.auditDropped.Add(ctx, 1)
}

func (m *Metrics) auditFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.auditFailed.Add(ctx, 1)
}
