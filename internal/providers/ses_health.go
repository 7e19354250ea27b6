package providers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// sendsPerRelay is the number of emails one submission costs.
const sendsPerRelay = 2

type sesAccountAPI interface {
	GetAccount(ctx context.Context, params *sesv2.GetAccountInput, optFns ...func(*sesv2.Options)) (*sesv2.GetAccountOutput, error)
}

// SESHealthChecker reports SES unhealthy when the account cannot send or has
// no 24h quota left for a full notification and confirmation pair. Results
// are cached for the TTL.
type SESHealthChecker struct {
	client   sesAccountAPI
	cacheTTL time.Duration

	mu            sync.RWMutex
	cachedHealthy bool
	cacheExpiry   time.Time
}

func NewSESHealthChecker(client sesAccountAPI, cacheTTL time.Duration) *SESHealthChecker {
	return &SESHealthChecker{
		client:   client,
		cacheTTL: cacheTTL,
	}
}

func (h *SESHealthChecker) IsHealthy(ctx context.Context) bool {
	h.mu.RLock()
	if time.Now().Before(h.cacheExpiry) {
		healthy := h.cachedHealthy
		h.mu.RUnlock()
		return healthy
	}
	h.mu.RUnlock()

	healthy := h.checkHealth(ctx)

	h.mu.Lock()
	h.cachedHealthy = healthy
	h.cacheExpiry = time.Now().Add(h.cacheTTL)
	h.mu.Unlock()

	return healthy
}

func (h *SESHealthChecker) checkHealth(ctx context.Context) bool {
	output, err := h.client.GetAccount(ctx, &sesv2.GetAccountInput{})
	if err != nil {
		// an unreachable account api counts as unhealthy so failover kicks in
		slog.WarnContext(ctx, "ses health check failed", "error", err)
		return false
	}

	if !output.SendingEnabled {
		slog.WarnContext(ctx, "ses sending is disabled",
			"enforcement_status", safeString(output.EnforcementStatus),
			"production_access", output.ProductionAccessEnabled,
		)
		return false
	}

	if !hasQuotaFor(output.SendQuota, sendsPerRelay) {
		slog.WarnContext(ctx, "ses daily quota exhausted",
			"max_24h_send", output.SendQuota.Max24HourSend,
			"sent_last_24h", output.SendQuota.SentLast24Hours,
		)
		return false
	}

	return true
}

// hasQuotaFor reports whether n more sends fit in the 24h quota. A negative
// maximum means unlimited.
func hasQuotaFor(q *sestypes.SendQuota, n float64) bool {
	if q == nil || q.Max24HourSend < 0 {
		return true
	}
	return q.Max24HourSend-q.SentLast24Hours >= n
}

func safeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// InvalidateCache forces the next IsHealthy call to fetch fresh status.
func (h *SESHealthChecker) InvalidateCache() {
	h.mu.Lock()
	h.cacheExpiry = time.Time{}
	h.mu.Unlock()
}
