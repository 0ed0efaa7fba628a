// Command rustymail-mcp serves the mail engine's tool surface over the MCP
// Streamable HTTP transport.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/TexasFortress-AI/rustymail-mcp/pkg/config"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/logging"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/observability"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/protocol"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/server"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/tools"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s (protocol %s)\n", protocol.ServerName, protocol.ServerVersion, protocol.ProtocolRevision)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	logger := newLogger(cfg.Logging)

	var tracer *observability.Tracer
	if cfg.Tracing.Enabled {
		var err error
		tracer, err = observability.NewTracer(observability.TracingConfig{
			ExporterType: observability.ExporterType(cfg.Tracing.Exporter),
			Endpoint:     cfg.Tracing.Endpoint,
			Insecure:     cfg.Tracing.Insecure,
			SampleRate:   cfg.Tracing.SampleRate,
			NeverSample:  []string{protocol.MethodPing},
		})
		if err != nil {
			return fmt.Errorf("initializing tracing: %w", err)
		}
	}

	registry := tools.NewMailboxRegistry(tools.NewInMemoryMailbox())
	srv := server.New(cfg, registry, logger, tracer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		logging.String("server", protocol.ServerName),
		logging.String("version", protocol.ServerVersion),
		logging.String("protocol", protocol.ProtocolRevision))

	return srv.Run(ctx)
}

func newLogger(cfg config.LoggingConfig) logging.Logger {
	var formatter logging.Formatter
	if cfg.Format == "json" {
		formatter = logging.NewJSONFormatter()
	} else {
		formatter = logging.NewTextFormatter()
	}
	logger := logging.New(os.Stderr, formatter)
	logger.SetLevel(logging.ParseLevel(cfg.Level))
	return logger
}
