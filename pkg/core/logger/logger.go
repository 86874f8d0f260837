// Package logger wraps log/slog with optional OpenTelemetry tracing.
// Every helper takes a context so that trace and span ids follow the log line.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "forensic-accounting"

var (
	mu              sync.RWMutex
	globalLogger    *slog.Logger
	detailedLogging bool
	tracingEnabled  bool
	tracer          trace.Tracer
	tracerProvider  *sdktrace.TracerProvider
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level           string    `yaml:"level"`  // DEBUG, INFO, WARN, ERROR
	Format          string    `yaml:"format"` // json or text
	DetailedLogging bool      `yaml:"detailed"`
	TracingEnabled  bool      `yaml:"tracing"`
	Output          io.Writer `yaml:"-"` // defaults to stderr
}

// InitWithConfig initializes the logger and, when enabled, the tracer.
// Logs go to stderr so that reports written to stdout stay clean.
func InitWithConfig(config LogConfig) error {
	mu.Lock()
	defer mu.Unlock()

	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	level := parseLogLevel(config.Level)
	if config.DetailedLogging && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(config.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	globalLogger = slog.New(handler)
	detailedLogging = config.DetailedLogging
	tracingEnabled = config.TracingEnabled

	if tracingEnabled {
		if err := initTracer(out); err != nil {
			globalLogger.Warn("Failed to initialize OpenTelemetry tracer, tracing disabled", "error", err)
			tracingEnabled = false
		}
	}
	return nil
}

func initTracer(out io.Writer) error {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(out),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return err
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return err
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	tracer = otel.Tracer(serviceName)
	return nil
}

// Shutdown flushes pending spans.
func Shutdown(ctx context.Context) error {
	mu.RLock()
	tp := tracerProvider
	mu.RUnlock()
	if tp != nil {
		return tp.Shutdown(ctx)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func current() (*slog.Logger, bool, bool) {
	mu.RLock()
	defer mu.RUnlock()
	l := globalLogger
	if l == nil {
		l = slog.Default()
	}
	return l, detailedLogging, tracingEnabled
}

// StartSpan starts a span, or returns the context's span when tracing is off.
func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	mu.RLock()
	t, on := tracer, tracingEnabled
	mu.RUnlock()
	if !on || t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.Start(ctx, spanName, opts...)
}

func traceAttrs(ctx context.Context) []any {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	return []any{
		"trace_id", span.SpanContext().TraceID().String(),
		"span_id", span.SpanContext().SpanID().String(),
	}
}

func Debug(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelDebug, msg, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelInfo, msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelWarn, msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelError, msg, args...)
}

// ErrorWithErr logs err and records it on the active span.
func ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	logWithTrace(ctx, slog.LevelError, msg, append([]any{"error", err}, args...)...)
}

func logWithTrace(ctx context.Context, level slog.Level, msg string, args ...any) {
	l, detailed, tracing := current()
	if !l.Enabled(ctx, level) {
		return
	}
	if tracing {
		if ta := traceAttrs(ctx); ta != nil {
			args = append(ta, args...)
		}
	}

	// runtime.Caller -> logWithTrace -> exported helper -> caller
	if detailed {
		if pc, file, line, ok := runtime.Caller(2); ok {
			if fn := runtime.FuncForPC(pc); fn != nil {
				args = append(args, "source", slog.GroupValue(
					slog.String("function", fn.Name()),
					slog.String("file", file),
					slog.Int("line", line),
				))
			}
		}
	}

	l.Log(ctx, level, msg, args...)
}

// =============================================================================
// OPERATION TIMING
// =============================================================================

// OperationTimer measures an operation and closes its span.
type OperationTimer struct {
	ctx       context.Context
	span      trace.Span
	operation string
	start     time.Time
	fields    []any
}

// StartOperation opens a span named operation; fields become span attributes.
func StartOperation(ctx context.Context, operation string, fields ...any) *OperationTimer {
	ctx, span := StartSpan(ctx, operation)
	span.SetAttributes(toAttributes(fields)...)

	Debug(ctx, "Operation started", append([]any{"operation", operation}, fields...)...)

	return &OperationTimer{ctx: ctx, span: span, operation: operation, start: time.Now(), fields: fields}
}

// Context carries the operation's span.
func (ot *OperationTimer) Context() context.Context {
	return ot.ctx
}

// Elapsed is the time since the operation started.
func (ot *OperationTimer) Elapsed() time.Duration {
	return time.Since(ot.start)
}

// End completes the operation.
func (ot *OperationTimer) End(additionalFields ...any) {
	duration := ot.Elapsed()

	ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
	ot.span.SetAttributes(toAttributes(additionalFields)...)
	ot.span.SetStatus(codes.Ok, "completed")
	ot.span.End()

	fields := append([]any{"operation", ot.operation}, ot.fields...)
	fields = append(fields, "duration_ms", duration.Milliseconds())
	Debug(ot.ctx, "Operation completed", append(fields, additionalFields...)...)
}

// EndWithError completes the operation as failed and logs at ERROR.
func (ot *OperationTimer) EndWithError(err error, additionalFields ...any) {
	duration := ot.Elapsed()

	ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
	ot.span.RecordError(err)
	ot.span.SetStatus(codes.Error, err.Error())
	ot.span.End()

	fields := append([]any{"operation", ot.operation}, ot.fields...)
	fields = append(fields, "duration_ms", duration.Milliseconds(), "error", err)
	Error(ot.ctx, "Operation failed", append(fields, additionalFields...)...)
}

func toAttributes(fields []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case string:
			attrs = append(attrs, attribute.String(key, v))
		case int:
			attrs = append(attrs, attribute.Int(key, v))
		case int64:
			attrs = append(attrs, attribute.Int64(key, v))
		case float64:
			attrs = append(attrs, attribute.Float64(key, v))
		case bool:
			attrs = append(attrs, attribute.Bool(key, v))
		}
	}
	return attrs
}

// =============================================================================
// DOMAIN EVENTS
// =============================================================================

// Assessment logs the outcome of one company analysis. Always logged at INFO.
func Assessment(ctx context.Context, subject, riskLevel string, riskScore int, fields ...any) {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent("forensic_assessment", trace.WithAttributes(
			attribute.String("subject", subject),
			attribute.String("risk_level", riskLevel),
			attribute.Int("risk_score", riskScore),
		))
	}

	all := append([]any{
		"type", "ASSESSMENT",
		"subject", subject,
		"risk_level", riskLevel,
		"risk_score", riskScore,
	}, fields...)
	logWithTrace(ctx, slog.LevelInfo, "Forensic assessment completed", all...)
}

// Skip records a data gap that was tolerated rather than failing the run.
func Skip(ctx context.Context, what, reason string, fields ...any) {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent("skipped", trace.WithAttributes(
			attribute.String("what", what),
			attribute.String("reason", reason),
		))
	}

	all := append([]any{"type", "SKIP", "what", what, "reason", reason}, fields...)
	logWithTrace(ctx, slog.LevelWarn, "Skipped", all...)
}

// IsDebugEnabled returns whether detailed logging is enabled
func IsDebugEnabled() bool {
	_, d, _ := current()
	return d
}

// IsTracingEnabled returns whether tracing is enabled
func IsTracingEnabled() bool {
	_, _, t := current()
	return t
}
