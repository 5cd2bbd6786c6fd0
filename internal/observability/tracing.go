// Package observability wires OpenTelemetry trace export into Genkit's
// tracer provider. Traces go to a local collector agent over OTLP/HTTP;
// the agent owns authentication and forwarding, so the application never
// carries exporter credentials.
package observability

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// DefaultAgentHost is the default local collector OTLP/HTTP endpoint.
const DefaultAgentHost = "localhost:4318"

// Config for trace export.
type Config struct {
	AgentHost   string // Collector OTLP/HTTP endpoint (default localhost:4318)
	ServiceName string // Service name shown in the tracing backend
	Environment string // Deployment environment tag (dev, staging, prod)
}

// Setup registers an OTLP exporter with Genkit's TracerProvider and returns
// a shutdown function that flushes pending spans. Exporter creation failure
// disables tracing with a warning rather than failing startup; tracing is
// never load-bearing.
//
// Must run before genkit.Init so the provider picks up the OTEL env vars.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) func() {
	if logger == nil {
		logger = slog.Default()
	}

	agentHost := cfg.AgentHost
	if agentHost == "" {
		agentHost = DefaultAgentHost
	}

	// os.Setenv is not concurrent-safe, but Setup runs exactly once during
	// startup before any goroutines spawn.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(agentHost),
		otlptracehttp.WithInsecure(), // localhost doesn't need TLS
	)
	if err != nil {
		logger.Warn("creating trace exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	// Application spans (retrieval, indexing) use the global tracer and
	// land in the same provider as Genkit's own spans.
	otel.SetTracerProvider(tracing.TracerProvider())

	logger.Debug("tracing enabled",
		"agent", agentHost,
		"service", cfg.ServiceName,
		"environment", cfg.Environment)

	shutdown := tracing.TracerProvider().Shutdown
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}
