package metrics

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AuthMetrics holds the authorization engine's counters.
type AuthMetrics struct {
	TokensIssued       metric.Int64Counter
	TokenFailures      metric.Int64Counter
	PermissionDenials  metric.Int64Counter
	CrossOrgRejections metric.Int64Counter
	EvaluationLatency  metric.Float64Histogram
}

// New creates the meter and the engine's instruments. When disabled, a
// no-op meter is used and recording is free.
func New(serviceName string, enabled bool) (*AuthMetrics, error) {
	name := serviceName
	if !enabled {
		name = "noop"
	}
	meter := otel.Meter(name)

	tokensIssued, err := meter.Int64Counter("auth_tokens_issued_total",
		metric.WithDescription("Access and refresh tokens issued"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	tokenFailures, err := meter.Int64Counter("auth_token_failures_total",
		metric.WithDescription("Token validation failures by kind"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	permissionDenials, err := meter.Int64Counter("authz_permission_denials_total",
		metric.WithDescription("Permission checks that returned deny"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	crossOrg, err := meter.Int64Counter("authz_cross_org_rejections_total",
		metric.WithDescription("Requests rejected by the tenant guard"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	latency, err := meter.Float64Histogram("authz_evaluation_seconds",
		metric.WithDescription("Permission evaluation latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram: %w", err)
	}

	return &AuthMetrics{
		TokensIssued:       tokensIssued,
		TokenFailures:      tokenFailures,
		PermissionDenials:  permissionDenials,
		CrossOrgRejections: crossOrg,
		EvaluationLatency:  latency,
	}, nil
}
