package providers

import "context"

// HealthChecker is implemented by providers that can tell ahead of a send
// whether they are able to deliver. A failover chain skips unhealthy ones.
type HealthChecker interface {
	// IsHealthy should be cheap; implementations cache remote lookups.
	IsHealthy(ctx context.Context) bool
}
