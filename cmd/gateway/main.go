// Command gateway serves the WebSocket controller gateway: each connection
// gets its own engine process and game session.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/earthwater/bridge-server-go/internal/config"
	"github.com/earthwater/bridge-server-go/internal/engine"
	"github.com/earthwater/bridge-server-go/internal/eventlog"
	"github.com/earthwater/bridge-server-go/internal/gateway"
	"github.com/earthwater/bridge-server-go/internal/session"
)

var configPath = flag.String("config", "", "path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting gateway",
		zap.String("address", cfg.Gateway.Address),
		zap.String("engine", cfg.Engine.Command),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	factory := func() (*session.Bridge, func(), error) {
		log, err := eventlog.New(cfg.EventLog.Dir)
		if err != nil {
			return nil, nil, err
		}

		handle := engine.NewHandle(engine.Options{
			Command:       cfg.Engine.Command,
			Args:          cfg.Engine.Args,
			Dir:           cfg.Engine.Dir,
			ReadTimeout:   cfg.Engine.ReadTimeout,
			ShutdownGrace: cfg.Engine.ShutdownGrace,
		}, logger)
		if err := handle.Start(); err != nil {
			log.Close()
			return nil, nil, err
		}

		bridge := session.NewBridge(handle, logger, session.WithObserver(log))
		cleanup := func() {
			_ = log.Close()
		}
		return bridge, cleanup, nil
	}

	server := gateway.NewServer(cfg.Gateway.Address, factory, logger)
	if err := server.Run(ctx); err != nil {
		logger.Fatal("gateway server error", zap.Error(err))
	}

	logger.Info("gateway stopped")
}

// initLogger initializes the zap logger based on configuration.
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
