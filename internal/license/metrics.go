package license

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OpenTelemetry counters for license operations. A nil
// *Metrics is valid and records nothing, so the manager works without
// observability wired in (tests, CLI tooling).
type Metrics struct {
	activations metric.Int64Counter
	revocations metric.Int64Counter
}

// NewMetrics registers the license counters on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	activations, err := meter.Int64Counter("license.activations",
		metric.WithDescription("License activation attempts by method and outcome"),
	)
	if err != nil {
		return nil, err
	}
	revocations, err := meter.Int64Counter("license.revocations",
		metric.WithDescription("License revocations"),
	)
	if err != nil {
		return nil, err
	}
	return &Metrics{
		activations: activations,
		revocations: revocations,
	}, nil
}

func (m *Metrics) recordActivation(ctx context.Context, method ActivationMethod, success bool) {
	if m == nil {
		return
	}
	m.activations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("method", string(method)),
			attribute.Bool("success", success),
		),
	)
}

func (m *Metrics) recordRevocation(ctx context.Context) {
	if m == nil {
		return
	}
	m.revocations.Add(ctx, 1)
}
