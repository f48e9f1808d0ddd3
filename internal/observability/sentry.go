package observability

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
)

// SentryConfig holds configuration for error reporting.
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
}

// InitSentry configures the global Sentry client. An empty DSN disables reporting.
// The returned flush function should run before the process exits.
func InitSentry(cfg SentryConfig) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		ServerName:       ServiceName,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init sentry: %w", err)
	}

	return func() { sentry.Flush(2 * time.Second) }, nil
}

// ReportError sends err to Sentry tagged with the request that produced it.
func ReportError(c *fiber.Ctx, err error) {
	if err == nil || sentry.CurrentHub().Client() == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("method", c.Method())
		scope.SetTag("path", c.Route().Path)
		if rid, ok := c.Locals("requestid").(string); ok {
			scope.SetTag("request_id", rid)
		}
		if uid, ok := c.Locals("userID").(string); ok {
			scope.SetUser(sentry.User{ID: uid})
		}
		sentry.CaptureException(err)
	})
}
