// Command play runs an interactive human-vs-AI game of 300: Earth & Water
// against the external rules engine.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/earthwater/bridge-server-go/internal/agent"
	"github.com/earthwater/bridge-server-go/internal/config"
	"github.com/earthwater/bridge-server-go/internal/engine"
	"github.com/earthwater/bridge-server-go/internal/eventlog"
	"github.com/earthwater/bridge-server-go/internal/session"
)

var (
	configPath = flag.String("config", "", "path to configuration file")
	scenario   = flag.String("scenario", "Standard", "scenario name")
	maxTurns   = flag.Int("max-turns", 200, "safety limit on total turns")
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

	if err := run(cfg, logger); err != nil {
		logger.Error("game session failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	stdin := bufio.NewScanner(os.Stdin)

	fmt.Println("300: EARTH & WATER - Interactive Game")
	fmt.Println(strings.Repeat("=", 50))

	humanPlayer := chooseSide(stdin)
	aiPlayer := "Persia"
	if humanPlayer == "Persia" {
		aiPlayer = "Greece"
	}
	fmt.Printf("You play %s, the AI plays %s.\n", humanPlayer, aiPlayer)

	seed := chooseSeed(stdin)

	log, err := eventlog.New(cfg.EventLog.Dir)
	if err != nil {
		return err
	}
	defer log.Close()
	fmt.Printf("Event log: %s\n", log.Path())

	handle := engine.NewHandle(engine.Options{
		Command:       cfg.Engine.Command,
		Args:          cfg.Engine.Args,
		Dir:           cfg.Engine.Dir,
		ReadTimeout:   cfg.Engine.ReadTimeout,
		ShutdownGrace: cfg.Engine.ShutdownGrace,
	}, logger)
	if err := handle.Start(); err != nil {
		return err
	}

	bridge := session.NewBridge(handle, logger, session.WithObserver(log))
	defer bridge.Shutdown()

	if _, err := bridge.Setup(seed, *scenario, nil); err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	ai := agent.NewRandomAgent("AI-"+aiPlayer, time.Now().UnixNano(), logger)
	ai.GameStarted(bridge)

	fmt.Println("\nGAME START - type h for help during your turn")
	displayState(bridge)

	for turn := 0; turn < *maxTurns && !bridge.IsGameOver(); turn++ {
		if !playTurn(stdin, bridge, ai, humanPlayer) {
			fmt.Println("Thanks for playing!")
			return nil
		}
	}

	showResults(bridge, ai, humanPlayer)
	return nil
}

// playTurn plays one action for whichever side is active. Returns false when
// the human quits.
func playTurn(stdin *bufio.Scanner, bridge *session.Bridge, ai *agent.RandomAgent, humanPlayer string) bool {
	activePlayer := bridge.ActivePlayer()

	var choice agent.Choice
	if activePlayer == humanPlayer {
		fmt.Printf("\nYOUR TURN (%s)\n", humanPlayer)
		selected, ok := humanAction(stdin, bridge)
		if !ok {
			return false
		}
		choice = selected
	} else {
		fmt.Printf("\nAI TURN (%s)\n", activePlayer)
		selected, ok, err := ai.ChooseAction(bridge)
		if err != nil || !ok {
			fmt.Println("AI could not choose an action")
			return false
		}
		choice = selected
		fmt.Printf("AI plays: %s%s\n", choice.Action, argSuffix(choice.Arg))
	}

	if _, err := bridge.ExecuteAction(activePlayer, choice.Action, choice.Arg); err != nil {
		// Domain failures are recoverable: report and let play continue.
		if session.IsDomainFailure(err) {
			fmt.Printf("Action rejected: %v\n", err)
			return true
		}
		fmt.Printf("Engine failure: %v\n", err)
		return false
	}

	if prompt := bridge.Prompt(); prompt != "" {
		fmt.Printf("> %s\n", prompt)
	}
	return true
}

// humanAction shows a numbered action menu and reads a selection. ok is
// false when the player quits.
func humanAction(stdin *bufio.Scanner, bridge *session.Bridge) (agent.Choice, bool) {
	actions, err := bridge.ListActions(false)
	if err != nil {
		fmt.Printf("Failed to list actions: %v\n", err)
		return agent.Choice{}, false
	}

	names := make([]string, 0, len(actions))
	for name, spec := range actions {
		if spec.Enabled {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		fmt.Println("No actions available")
		return agent.Choice{}, false
	}
	sort.Strings(names)

	fmt.Println("\nAVAILABLE ACTIONS:")
	for i, name := range names {
		spec := actions[name]
		switch {
		case len(spec.Choices) > 0:
			fmt.Printf("  %d. %s (choose from: %v)\n", i+1, name, spec.Choices)
		case spec.Value != nil:
			fmt.Printf("  %d. %s (%v)\n", i+1, name, spec.Value)
		default:
			fmt.Printf("  %d. %s\n", i+1, name)
		}
	}
	fmt.Println("Special commands: (h)elp, (s)tatus, (q)uit")

	for {
		fmt.Print("Enter your choice: ")
		if !stdin.Scan() {
			return agent.Choice{}, false
		}
		input := strings.ToLower(strings.TrimSpace(stdin.Text()))

		switch input {
		case "h", "help":
			showHelp()
			continue
		case "s", "status":
			displayState(bridge)
			continue
		case "q", "quit":
			return agent.Choice{}, false
		}

		index, err := strconv.Atoi(input)
		if err != nil || index < 1 || index > len(names) {
			fmt.Printf("Invalid choice. Enter 1-%d or a command.\n", len(names))
			continue
		}

		name := names[index-1]
		spec := actions[name]
		choice := agent.Choice{Action: name}
		switch {
		case len(spec.Choices) == 1:
			choice.Arg = spec.Choices[0]
		case len(spec.Choices) > 1:
			arg, ok := chooseArg(stdin, name, spec.Choices)
			if !ok {
				continue
			}
			choice.Arg = arg
		case spec.Value != nil:
			choice.Arg = spec.Value
		}
		return choice, true
	}
}

// chooseArg reads one argument for a list-shaped action, accepting either
// the literal value or its 1-based position.
func chooseArg(stdin *bufio.Scanner, action string, choices []any) (any, bool) {
	fmt.Printf("Choose argument for %s: %v\n", action, choices)
	for {
		fmt.Print("Enter choice: ")
		if !stdin.Scan() {
			return nil, false
		}
		input := strings.TrimSpace(stdin.Text())

		for _, c := range choices {
			if fmt.Sprint(c) == input {
				return c, true
			}
		}
		if index, err := strconv.Atoi(input); err == nil && index >= 1 && index <= len(choices) {
			return choices[index-1], true
		}
		fmt.Printf("Invalid choice. Must be one of: %v\n", choices)
	}
}

func argSuffix(arg any) string {
	if arg == nil {
		return ""
	}
	return fmt.Sprintf("(%v)", arg)
}

func displayState(bridge *session.Bridge) {
	snapshot := bridge.Snapshot()
	if snapshot == nil {
		fmt.Println("No game state available")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("CURRENT GAME STATE")
	fmt.Println(strings.Repeat("=", 60))

	campaign, _ := snapshot.ExtraInt("campaign")
	vp, _ := snapshot.ExtraInt("vp")
	fmt.Printf("Turn: %d | Campaign: %d | Victory Points: %d\n", bridge.TurnIndex(), campaign, vp)
	fmt.Printf("Active Player: %s\n", snapshot.ActivePlayer)
	if snapshot.Prompt != "" {
		fmt.Printf("Status: %s\n", snapshot.Prompt)
	}

	d := eventlog.DigestSnapshot(snapshot)
	fmt.Printf("Units - Greece: %dA/%dF, Persia: %dA/%dF\n",
		d.GreekArmies, d.GreekFleets, d.PersianArmies, d.PersianFleets)
	fmt.Println()
}

func showResults(bridge *session.Bridge, ai *agent.RandomAgent, humanPlayer string) {
	fmt.Println("\nGAME COMPLETE")

	winner, decided := bridge.Winner()
	switch {
	case !decided:
		fmt.Println("Game ended without a clear winner")
	case winner == humanPlayer:
		fmt.Printf("Congratulations, you won as %s!\n", winner)
	case winner == "Draw":
		fmt.Println("The game ended in a draw.")
	default:
		fmt.Printf("The AI wins as %s.\n", winner)
	}
	fmt.Printf("Total turns: %d\n", bridge.TurnIndex())

	ai.GameEnded(bridge, winner)
}

func chooseSide(stdin *bufio.Scanner) string {
	for {
		fmt.Print("Choose your side (G)reece or (P)ersia [G]: ")
		if !stdin.Scan() {
			return "Greece"
		}
		switch strings.ToLower(strings.TrimSpace(stdin.Text())) {
		case "", "g", "greece":
			return "Greece"
		case "p", "persia":
			return "Persia"
		}
		fmt.Println("Invalid choice. Enter G for Greece or P for Persia.")
	}
}

func chooseSeed(stdin *bufio.Scanner) *int64 {
	fmt.Print("Enter game seed (number) or press Enter for random: ")
	if !stdin.Scan() {
		return nil
	}
	input := strings.TrimSpace(stdin.Text())
	if input == "" {
		return nil
	}
	seed, err := strconv.ParseInt(input, 10, 64)
	if err != nil {
		fmt.Println("Invalid seed, using random")
		return nil
	}
	return &seed
}

func showHelp() {
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("HELP - 300: EARTH & WATER")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("A 2-player strategy game about the Greco-Persian Wars.")
	fmt.Println()
	fmt.Println("Objective:")
	fmt.Println("  Greece: prevent Persian victory, control key cities")
	fmt.Println("  Persia: capture Greek capitals or gain victory points")
	fmt.Println()
	fmt.Println("Common actions:")
	fmt.Println("  draw: draw cards from the deck")
	fmt.Println("  city: select a city")
	fmt.Println("  port: select a port for fleet actions")
	fmt.Println("  next: advance to the next phase")
	fmt.Println()
	fmt.Println("Read the prompt carefully - it tells you what the engine")
	fmt.Println("expects. Use s to check game status anytime. Undo is")
	fmt.Println("disabled for decisive gameplay.")
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
