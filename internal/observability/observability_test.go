package observability

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.NotNil(t, Tracer)
}

func TestStartStoreSpan_FinishesWithError(t *testing.T) {
	ctx, finish := StartStoreSpan(context.Background(), "sqlite", "posts.create")
	assert.NotNil(t, ctx)
	finish(errors.New("boom"))
}

func TestTrackStore_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := Tracer
	Tracer = tp.Tracer("test")
	t.Cleanup(func() {
		Tracer = previous
		_ = tp.Shutdown(context.Background())
	})

	ctx, done := TrackStore(context.Background(), "gorm", "posts.list_by_authors")
	assert.True(t, trace.SpanFromContext(ctx).SpanContext().IsValid())
	done()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "store.posts.list_by_authors", spans[0].Name())
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())
}

func gatheredNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestMetrics_Registered(t *testing.T) {
	RecordAuthEvent("login", false)
	RecordSocialAction("follow")
	_, done := TrackStore(context.Background(), "sqlite", "users.get")
	done()

	names := gatheredNames(t)
	assert.True(t, names["campusnet_auth_events_total"])
	assert.True(t, names["campusnet_social_actions_total"])
	assert.True(t, names["campusnet_store_operation_latency_seconds"])
}

func TestInitSentry_EmptyDSNIsNoop(t *testing.T) {
	flush, err := InitSentry(SentryConfig{})
	require.NoError(t, err)
	flush()

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		ReportError(c, errors.New("not sent"))
		return c.SendStatus(fiber.StatusOK)
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
