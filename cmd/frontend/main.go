// Package main provides the telnet frontend binary: it accepts telnet
// clients and bridges each one onto the NATS gateway as its own game
// connection.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/cory-johannsen/muddy/internal/config"
	"github.com/cory-johannsen/muddy/internal/frontend/bridge"
	"github.com/cory-johannsen/muddy/internal/frontend/handlers"
	"github.com/cory-johannsen/muddy/internal/frontend/telnet"
	"github.com/cory-johannsen/muddy/internal/observability"
	"github.com/cory-johannsen/muddy/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	natsURL := cfg.Nats.ClientURL()
	conn, err := nats.Connect(natsURL, nats.Name("muddy-frontend"))
	if err != nil {
		logger.Fatal("connecting to nats", zap.String("url", natsURL), zap.Error(err))
	}
	defer conn.Close()

	handler := handlers.NewSessionHandler(func() (handlers.GameClient, error) {
		return bridge.Dial(conn, cfg.Nats.SubjectPrefix, logger)
	}, logger)

	acceptor := telnet.NewAcceptor(cfg.Telnet, handler, logger)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("telnet", &server.FuncService{
		StartFn: func() error {
			logger.Info("frontend starting",
				zap.String("addr", cfg.Telnet.Addr()),
				zap.Duration("startup", time.Since(start)),
			)
			return acceptor.ListenAndServe()
		},
		StopFn: func() { acceptor.Stop() },
	})

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("frontend error", zap.Error(err))
	}
}
