// Command randbot plays headless random-vs-random games against the rules
// engine, printing outcome statistics and optionally archiving histories.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/earthwater/bridge-server-go/internal/agent"
	"github.com/earthwater/bridge-server-go/internal/archive"
	"github.com/earthwater/bridge-server-go/internal/config"
	"github.com/earthwater/bridge-server-go/internal/engine"
	"github.com/earthwater/bridge-server-go/internal/eventlog"
	"github.com/earthwater/bridge-server-go/internal/session"
)

var (
	configPath = flag.String("config", "", "path to configuration file")
	games      = flag.Int("games", 1, "number of games to play")
	seed       = flag.Int64("seed", 0, "game seed (0 = random)")
	scenario   = flag.String("scenario", "Standard", "scenario name")
	maxTurns   = flag.Int("max-turns", 2000, "safety limit on turns per game")
)

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

	var store *archive.Store
	if cfg.Archive.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err = archive.NewStore(ctx, cfg.Archive.DSN, logger)
		cancel()
		if err != nil {
			logger.Fatal("failed to connect to archive", zap.Error(err))
		}
		defer store.Close()
		if err := store.EnsureSchema(context.Background()); err != nil {
			logger.Fatal("failed to prepare archive schema", zap.Error(err))
		}
	}

	wins := make(map[string]int)
	for i := 0; i < *games; i++ {
		winner, turns, err := playGame(cfg, logger, store, i)
		if err != nil {
			logger.Error("game failed", zap.Int("game", i+1), zap.Error(err))
			continue
		}
		wins[winner]++
		logger.Info("game finished",
			zap.Int("game", i+1),
			zap.String("winner", winner),
			zap.Int("turns", turns),
		)
	}

	fmt.Printf("Played %d game(s): Greece %d, Persia %d, Draw %d, unfinished %d\n",
		*games, wins["Greece"], wins["Persia"], wins["Draw"], wins[""])
}

// playGame runs one full random-vs-random game over a fresh engine process.
func playGame(cfg *config.Config, logger *zap.Logger, store *archive.Store, index int) (string, int, error) {
	log, err := eventlog.New(cfg.EventLog.Dir)
	if err != nil {
		return "", 0, err
	}
	defer log.Close()

	handle := engine.NewHandle(engine.Options{
		Command:       cfg.Engine.Command,
		Args:          cfg.Engine.Args,
		Dir:           cfg.Engine.Dir,
		ReadTimeout:   cfg.Engine.ReadTimeout,
		ShutdownGrace: cfg.Engine.ShutdownGrace,
	}, logger)
	if err := handle.Start(); err != nil {
		return "", 0, err
	}

	bridge := session.NewBridge(handle, logger, session.WithObserver(log))
	defer bridge.Shutdown()

	gameSeed := seedFor(index)
	if _, err := bridge.Setup(gameSeed, *scenario, nil); err != nil {
		return "", 0, fmt.Errorf("setup: %w", err)
	}

	bot := agent.NewRandomAgent("randbot", time.Now().UnixNano()+int64(index), logger)
	bot.GameStarted(bridge)

	for turn := 0; turn < *maxTurns && !bridge.IsGameOver(); turn++ {
		choice, ok, err := bot.ChooseAction(bridge)
		if err != nil {
			return "", bridge.TurnIndex(), err
		}
		if !ok {
			break
		}

		if _, err := bridge.ExecuteAction(bridge.ActivePlayer(), choice.Action, choice.Arg); err != nil {
			if session.IsDomainFailure(err) {
				// The engine rejected the move; the session keeps its
				// last-known-good state, so just pick again.
				continue
			}
			return "", bridge.TurnIndex(), err
		}
	}

	winner, _ := bridge.Winner()
	bot.GameEnded(bridge, winner)

	if store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := store.ArchiveSession(ctx, archive.SessionResult{
			SessionID: bridge.ID(),
			Scenario:  *scenario,
			Seed:      gameSeed,
			Winner:    winner,
			History:   bridge.History(),
		})
		if err != nil {
			logger.Warn("failed to archive session", zap.Error(err))
		}
	}

	return winner, bridge.TurnIndex(), nil
}

// seedFor derives a per-game seed from the -seed flag so multi-game runs
// stay reproducible without replaying identical games.
func seedFor(index int) *int64 {
	if *seed == 0 {
		return nil
	}
	s := *seed + int64(index)
	return &s
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
