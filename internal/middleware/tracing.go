package middleware

import (
	"net/http"
	"strings"

	"campusnet/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Span attributes specific to campusnet requests.
const (
	AttrArea     = attribute.Key("campusnet.area")
	AttrUserID   = attribute.Key("enduser.id")
	AttrFeedSize = attribute.Key("campusnet.feed.size")
	AttrToggleOn = attribute.Key("campusnet.toggle.on")
)

// TracingMiddleware opens a server span per request. The span is renamed to the
// matched route template once routing finished, so /api/post/like/<uuid> and
// every other post id share one span name.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(http.Header(c.GetReqHeaders())))

		ctx, span := observability.Tracer.Start(ctx, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.target", c.OriginalURL()),
				attribute.String("http.client_ip", c.IP()),
				attribute.String("http.user_agent", c.Get(fiber.HeaderUserAgent)),
				AttrArea.String(routeArea(c.Path())),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		c.Set("X-Trace-ID", traceID)
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			span.SetAttributes(attribute.String("request.id", rid))
		}
		c.SetUserContext(ctx)

		err := c.Next()

		if route := c.Route(); route != nil && route.Path != "" && route.Path != "/" {
			span.SetName(c.Method() + " " + route.Path)
			span.SetAttributes(attribute.String("http.route", route.Path))
		}

		status := c.Response().StatusCode()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if err != nil {
			span.RecordError(err)
		}
		if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		return err
	}
}

// TagSpan adds attributes to the request span, when tracing is active.
func TagSpan(c *fiber.Ctx, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(c.UserContext()).SetAttributes(attrs...)
}

// routeArea groups a request path into the API surface it belongs to.
func routeArea(path string) string {
	trimmed := strings.TrimPrefix(path, "/api")
	segment := strings.SplitN(strings.TrimPrefix(trimmed, "/"), "/", 2)[0]
	switch segment {
	case "user":
		return "accounts"
	case "post":
		return "posts"
	case "ws":
		return "realtime"
	case "health", "metrics", "swagger":
		return "operations"
	default:
		if strings.HasPrefix(path, "/uploads") {
			return "media"
		}
		return "other"
	}
}
