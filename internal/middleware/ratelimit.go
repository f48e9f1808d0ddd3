package middleware

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"campusnet/internal/models"
	"campusnet/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// Policy is a named fixed-window budget for one kind of campus action.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
	OnFail FailPolicy
}

// Budgets for the throttled endpoints.
var (
	RegisterPolicy   = Policy{Name: "register", Limit: 5, Window: 10 * time.Minute}
	LoginPolicy      = Policy{Name: "login", Limit: 10, Window: 5 * time.Minute}
	CreatePostPolicy = Policy{Name: "create_post", Limit: 10, Window: time.Minute}
	CommentPolicy    = Policy{Name: "create_comment", Limit: 20, Window: time.Minute}
	SearchPolicy     = Policy{Name: "search", Limit: 30, Window: time.Minute}
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

var errNoRateLimitStore = errors.New("rate limit store unavailable")

// rateLimitBypassed reports whether APP_ENV disables throttling ("test", "development" or unset).
func rateLimitBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return true
	}
	return false
}

func rateLimitKey(p Policy, subject string) string {
	return "rl:" + p.Name + ":" + subject
}

// CheckRateLimit counts one hit of subject against p. The counter and its
// expiry are written in one transaction so a window can never lose its TTL.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, p Policy, subject string) (Decision, error) {
	if rateLimitBypassed() {
		return Decision{Allowed: true, Remaining: p.Limit}, nil
	}
	if rdb == nil {
		return Decision{}, errNoRateLimitStore
	}

	key := rateLimitKey(p, subject)
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, p.Window)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return Decision{}, err
	}

	count := int(incr.Val())
	if count > p.Limit {
		return Decision{Allowed: false, RetryAfter: ttl.Val()}, nil
	}
	return Decision{Allowed: true, Remaining: p.Limit - count}, nil
}

// RateLimit returns a Fiber middleware enforcing p. Requests are counted per
// authenticated user when the auth guard ran first, otherwise per client IP.
func RateLimit(rdb *redis.Client, p Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		subject := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(string); ok && uid != "" {
			subject = "user:" + uid
		}

		decision, err := CheckRateLimit(ctx, rdb, p, subject)
		if err != nil {
			if p.OnFail == FailClosed {
				Logger.WarnContext(ctx, "rate limit store unavailable, failing closed",
					"policy", p.Name, "error", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
					Success: false,
					Message: "Service temporarily unavailable",
					Code:    models.CodeRateLimited,
				})
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(p.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			observability.RecordRateLimited(p.Name)
			if decision.RetryAfter > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(decision.RetryAfter.Round(time.Second).Seconds())))
			}
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Success: false,
				Message: "Too many requests, please slow down",
				Code:    models.CodeRateLimited,
			})
		}
		return c.Next()
	}
}
