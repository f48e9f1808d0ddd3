// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"campusnet/internal/observability"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var client *redis.Client

// commandHook counts failed commands and wraps each command in a client span
// so cache hits and rate limit checks show up under the request trace.
type commandHook struct{}

func (commandHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (commandHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, span := startCommandSpan(ctx, cmd.Name(), 1)
		err := next(ctx, cmd)
		endCommandSpan(span, cmd.Name(), err)
		return err
	}
}

func (commandHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		ctx, span := startCommandSpan(ctx, "pipeline", len(cmds))
		err := next(ctx, cmds)
		endCommandSpan(span, "pipeline", err)
		return err
	}
}

func startCommandSpan(ctx context.Context, name string, size int) (context.Context, trace.Span) {
	return observability.Tracer.Start(ctx, "redis."+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", name),
			attribute.Int("db.redis.commands", size),
		),
	)
}

func endCommandSpan(span trace.Span, name string, err error) {
	// A miss is a normal cache outcome.
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RedisErrorRate.WithLabelValues(name).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// InitRedis initializes the Redis client with the given address.
// Accepts either host:port or a redis:// URL. On failure the client stays nil
// and callers run without cache, rate limiting, or notifications.
func InitRedis(addr string) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			slog.Warn("invalid redis url, continuing without cache", "error", err)
			client = nil
			return
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client = redis.NewClient(opts)
	client.AddHook(commandHook{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unreachable, continuing without cache", "addr", opts.Addr, "error", err)
		_ = client.Close()
		client = nil
		return
	}
	slog.Info("redis connected", "addr", opts.Addr, "db", opts.DB)
}

// GetClient returns the current Redis client instance.
func GetClient() *redis.Client {
	return client
}

// SetClient replaces the package client. Used by tests and by callers that
// manage the connection themselves.
func SetClient(c *redis.Client) {
	if c != nil {
		c.AddHook(commandHook{})
	}
	client = c
}
