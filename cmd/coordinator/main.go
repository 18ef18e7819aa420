package main

import (
	"context"
	"log"

	"github.com/absmach/supermq/pkg/server"
	"github.com/caarlos0/env/v11"

	"github.com/bladesteam/blades/bladesd"
)

const (
	defHTTPPort   = "8080"
	envPrefixHTTP = "BLADES_COORDINATOR_HTTP_"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := bladesd.Config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		log.Fatalf("failed to load %s HTTP server configuration : %s", bladesd.SvcName, err.Error())
	}
	cfg.Server = httpServerConfig

	if err := bladesd.StartCoordinator(ctx, cancel, cfg); err != nil {
		log.Fatalf("failed to start %s: %s", bladesd.SvcName, err.Error())
	}
}
