package gee

import (
	"context"

	"github.com/herrtunante/whisp/internal/resilience"
)

// breakerClient guards a backend client with a circuit breaker so a backend
// outage fails fast instead of burning retries on every plot page.
type breakerClient struct {
	inner Client
	cb    *resilience.CircuitBreaker
}

// WithBreaker wraps a client so all calls flow through the circuit breaker.
// Only transient failures count toward opening the circuit; a 400 from a bad
// geometry says nothing about backend health.
func WithBreaker(inner Client, cb *resilience.CircuitBreaker) Client {
	return &breakerClient{inner: inner, cb: cb}
}

func (b *breakerClient) ReduceRegions(ctx context.Context, req ReduceRequest) (*ReduceResponse, error) {
	return resilience.ExecuteVal(ctx, b.cb, func(ctx context.Context) (*ReduceResponse, error) {
		return b.inner.ReduceRegions(ctx, req)
	})
}

func (b *breakerClient) DescribeLayer(ctx context.Context, asset string) (*LayerInfo, error) {
	return resilience.ExecuteVal(ctx, b.cb, func(ctx context.Context) (*LayerInfo, error) {
		return b.inner.DescribeLayer(ctx, asset)
	})
}

func (b *breakerClient) Health(ctx context.Context) error {
	return b.cb.Execute(ctx, func(ctx context.Context) error {
		return b.inner.Health(ctx)
	})
}
