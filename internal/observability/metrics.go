package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusnet_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// StoreOperationLatency records store latency by backend and operation.
	StoreOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campusnet_store_operation_latency_seconds",
		Help:    "Store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "operation"})

	// SocialActionsTotal counts social-graph and engagement actions by kind.
	SocialActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusnet_social_actions_total",
		Help: "Total social actions by action",
	}, []string{"action"})

	// AuthEventsTotal counts authentication attempts by event and outcome.
	AuthEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusnet_auth_events_total",
		Help: "Total authentication events by event and outcome",
	}, []string{"event", "outcome"})

	// CacheLookupsTotal counts cache-aside lookups by result.
	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusnet_cache_lookups_total",
		Help: "Total cache lookups by result",
	}, []string{"result"})

	// WebSocketConnectionsTotal is the gauge of active activity streams.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "campusnet_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// RateLimitedTotal counts requests rejected by a rate limit policy.
	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusnet_rate_limited_total",
		Help: "Total requests rejected by rate limit policy",
	}, []string{"policy"})

	// NotificationsPublishedTotal counts activity notifications by type.
	NotificationsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusnet_notifications_published_total",
		Help: "Total activity notifications published by type",
	}, []string{"type"})
)

// TrackStore starts a store span and returns the span context plus a function
// that ends the span and records the call latency (e.g. defer).
func TrackStore(ctx context.Context, backend, operation string) (context.Context, func()) {
	start := time.Now()
	ctx, finish := StartStoreSpan(ctx, backend, operation)
	return ctx, func() {
		finish(nil)
		StoreOperationLatency.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	}
}

// RecordSocialAction increments the social action counter.
func RecordSocialAction(action string) {
	SocialActionsTotal.WithLabelValues(action).Inc()
}

// RecordAuthEvent increments the auth event counter.
func RecordAuthEvent(event string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}

// RecordRateLimited increments the rejection counter for policy.
func RecordRateLimited(policy string) {
	RateLimitedTotal.WithLabelValues(policy).Inc()
}
