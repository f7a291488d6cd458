package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/induservicios/backend/internal/infrastructure/config"
)

type tracedRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func setupRecorder(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return tp, recorder
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), config.TelemetryConfig{Enabled: false}, "test", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("x"))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), Sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), Sampler(0).Description())
	assert.Contains(t, Sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestStartServiceSpan(t *testing.T) {
	_, recorder := setupRecorder(t)

	ctx, span := StartServiceSpan(context.Background(), "order", "create_card",
		AttrOrderCode, "PED-202610-00001", "items", 3, "paid", false, "odd")
	assert.NotEmpty(t, TraceID(ctx))
	AddEvent(span, "stock_reserved", AttrProductID, "p-1")
	RecordError(span, errors.New("stripe down"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, "order.create_card", s.Name())
	attrs := attrMap(s.Attributes())
	assert.Equal(t, "PED-202610-00001", attrs[AttrOrderCode].AsString())
	assert.Equal(t, int64(3), attrs["items"].AsInt64())
	assert.False(t, attrs["paid"].AsBool())
	assert.Equal(t, codes.Error, s.Status().Code)
	require.Len(t, s.Events(), 2) // custom event + recorded error
	assert.Equal(t, "stock_reserved", s.Events()[0].Name)
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}

func TestDBTracingPlugin_Register(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, NewDBTracingPlugin(DBTracingConfig{Enabled: false}, zap.NewNop()).Register(db))

	_, recorder := setupRecorder(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, DBSystem: "sqlite"}, zap.NewNop())
	require.NoError(t, plugin.Register(db))

	require.NoError(t, db.WithContext(context.Background()).Create(&tracedRow{Name: "a"}).Error)
	assert.NotEmpty(t, recorder.Ended())
}

func TestDBTracingPlugin_After(t *testing.T) {
	db := setupTestDB(t)
	tp, recorder := setupRecorder(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: 100 * time.Millisecond}, zap.NewNop())

	ctx, span := tp.Tracer("test").Start(context.Background(), "query")
	ctx = context.WithValue(ctx, queryStartTimeKey, time.Now().Add(-time.Second))

	stmt := db.WithContext(ctx)
	stmt.Statement.Table = "orders"
	stmt.Statement.RowsAffected = 2
	stmt.Error = errors.New("deadlock detected")
	plugin.after(stmt)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "orders", attrs["db.sql.table"].AsString())
	assert.Equal(t, int64(2), attrs["db.rows_affected"].AsInt64())
	assert.True(t, attrs["db.slow_query"].AsBool())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestDBTracingPlugin_AfterIgnoresNotFound(t *testing.T) {
	db := setupTestDB(t)
	tp, recorder := setupRecorder(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())

	ctx, span := tp.Tracer("test").Start(context.Background(), "query")
	stmt := db.WithContext(ctx)
	stmt.Error = gorm.ErrRecordNotFound
	plugin.after(stmt)
	span.End()

	assert.Equal(t, codes.Unset, recorder.Ended()[0].Status().Code)
}
