package database

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"campusnet/internal/config"
	"campusnet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestConnect_SQLiteMigrates(t *testing.T) {
	cfg := &config.Config{DBDriver: config.DriverSQLite, DBSQLitePath: ":memory:", Env: "test"}

	db, err := Connect(cfg)
	require.NoError(t, err)

	for _, table := range []any{&models.User{}, &models.Follow{}, &models.Post{}, &models.PostLike{}, &models.PostBookmark{}, &models.Comment{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestConnect_ProductionProfileMigrates(t *testing.T) {
	cfg := &config.Config{DBDriver: config.DriverSQLite, DBSQLitePath: ":memory:", Env: "production"}

	db, err := Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	require.True(t, db.Migrator().HasTable(&models.User{}))
	user := &models.User{ID: models.NewID(), Name: "Ada", Username: "ada", Email: "ada@x.com", Password: "h", Kind: models.UserKindUser}
	assert.NoError(t, db.Create(user).Error)
}

func TestConnect_RejectsDocumentDriver(t *testing.T) {
	_, err := Connect(&config.Config{DBDriver: config.DriverMongo})
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "campusnet"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=campusnet sslmode=disable", PostgresDSN(cfg))

	cfg.DBSSLMode = "require"
	assert.Contains(t, PostgresDSN(cfg), "sslmode=require")
}

func TestCustomGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 2", 1 }, nil)
	assert.Contains(t, buf.String(), "GORM slow query")

	buf.Reset()
	l.LogMode(logger.Silent).Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 3", 0 }, nil)
	assert.Empty(t, buf.String())
}

func TestCustomGormLogger_TraceMarksSpanOnFailure(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	l := NewGormLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, span := tp.Tracer("test").Start(context.Background(), "store.posts.create")
	l.Trace(ctx, time.Now(), func() (string, int64) { return "INSERT", 0 }, errors.New("disk full"))
	span.End()

	ctx, span = tp.Tracer("test").Start(context.Background(), "store.posts.get")
	l.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT", 0 }, gorm.ErrRecordNotFound)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Len(t, spans[0].Events(), 1)
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
}
