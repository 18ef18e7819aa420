// Package bladesd wires and starts the blades services.
package bladesd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/bladesteam/blades/aggregator"
	"github.com/bladesteam/blades/coordinator"
	"github.com/bladesteam/blades/coordinator/api"
	"github.com/bladesteam/blades/coordinator/middleware"
	"github.com/bladesteam/blades/pkg/mqtt"
	"github.com/bladesteam/blades/pkg/storage"
)

const SvcName = "coordinator"

type Config struct {
	LogLevel      string        `env:"BLADES_LOG_LEVEL"          envDefault:"info"`
	InstanceID    string        `env:"BLADES_INSTANCE_ID"`
	Algorithm     string        `env:"BLADES_AGGREGATOR"         envDefault:"autogm"`
	BaseTopic     string        `env:"BLADES_BASE_TOPIC"         envDefault:"blades"`
	SweepInterval time.Duration `env:"BLADES_SWEEP_INTERVAL"     envDefault:"5s"`
	MQTTAddress   string        `env:"BLADES_MQTT_ADDRESS"`
	MQTTQoS       uint8         `env:"BLADES_MQTT_QOS"           envDefault:"2"`
	MQTTTimeout   time.Duration `env:"BLADES_MQTT_TIMEOUT"       envDefault:"30s"`
	MQTTUsername  string        `env:"BLADES_MQTT_USERNAME"`
	MQTTPassword  string        `env:"BLADES_MQTT_PASSWORD"`
	StatusTopic   string        `env:"BLADES_MQTT_STATUS_TOPIC"`
	Server        server.Config
	OTELURL       url.URL `env:"BLADES_OTEL_URL"`
	TraceRatio    float64 `env:"BLADES_TRACE_RATIO"        envDefault:"0"`
}

// StartCoordinator runs the coordinator until the context is cancelled.
// Messaging is optional: with no MQTT address the service runs HTTP-only.
func StartCoordinator(ctx context.Context, cancel context.CancelFunc, cfg Config) error {
	g, ctx := errgroup.WithContext(ctx)

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, SvcName, cfg.OTELURL, "", cfg.TraceRatio)
		if err != nil {
			return fmt.Errorf("failed to initialize opentelemetry: %s", err.Error())
		}
		defer func() {
			if err := sdktp.Shutdown(ctx); err != nil {
				slog.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(SvcName)

	var pubsub mqtt.PubSub
	if cfg.MQTTAddress != "" {
		ps, err := mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, SvcName, cfg.MQTTUsername, cfg.MQTTPassword, cfg.StatusTopic, cfg.MQTTTimeout, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize mqtt pubsub: %s", err.Error())
		}
		pubsub = ps
	}

	agg, err := aggregator.New(cfg.Algorithm)
	if err != nil {
		return fmt.Errorf("failed to initialize aggregator: %s", err.Error())
	}

	svc := coordinator.NewService(
		storage.NewInMemoryStorage(),
		agg,
		pubsub,
		cfg.BaseTopic,
		logger,
	)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(SvcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	if err := svc.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to update topic: %s", err.Error())
	}

	hs := httpserver.NewServer(ctx, cancel, SvcName, cfg.Server, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	sweeper := coordinator.NewSweeper(svc, cfg.SweepInterval, logger)
	g.Go(func() error {
		return sweeper.Run(ctx)
	})

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, SvcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", SvcName, err))
	}

	return nil
}
