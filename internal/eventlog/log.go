// Package eventlog records every session exchange to a per-session,
// timestamp-named, append-only log file. The log is a pure observer of the
// session bridge: it is never read back by the bridge and exists for humans
// and external tooling.
package eventlog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/earthwater/bridge-server-go/internal/protocol"
	"github.com/earthwater/bridge-server-go/internal/session"
)

// Log writes structured exchange records for one session.
type Log struct {
	logger *zap.Logger
	file   *os.File
	path   string
}

// New creates the session's log file under dir, named with the creation
// timestamp. The file stays open and append-only for the session's lifetime.
func New(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	name := fmt.Sprintf("game_%s.log", time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create event log %s: %w", path, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(file), zapcore.InfoLevel)

	return &Log{
		logger: zap.New(core),
		file:   file,
		path:   path,
	}, nil
}

// Path returns the log file's location.
func (l *Log) Path() string { return l.path }

// Close flushes and closes the log file.
func (l *Log) Close() error {
	_ = l.logger.Sync()
	return l.file.Close()
}

// ObserveExchange implements session.Observer.
func (l *Log) ObserveExchange(x session.Exchange) {
	fields := []zap.Field{
		zap.String("session_id", x.SessionID),
		zap.String("verb", x.Verb),
		zap.Bool("success", x.Success),
		zap.Int("turn", x.TurnIndex),
	}
	if x.Verb == protocol.CmdAction {
		fields = append(fields,
			zap.String("player", x.Player),
			zap.String("action", x.Action),
		)
		if x.Arg != nil {
			fields = append(fields, zap.Any("arg", x.Arg))
		}
	}

	if !x.Success {
		fields = append(fields, zap.String("error", x.ErrorText))
		l.logger.Warn("exchange failed", fields...)
		return
	}

	if x.Snapshot != nil {
		d := DigestSnapshot(x.Snapshot)
		fields = append(fields,
			zap.String("active_player", d.ActivePlayer),
			zap.String("phase", d.Phase),
			zap.Int("campaign", d.Campaign),
			zap.Int("vp", d.Score),
			zap.Int("greek_armies", d.GreekArmies),
			zap.Int("greek_fleets", d.GreekFleets),
			zap.Int("persian_armies", d.PersianArmies),
			zap.Int("persian_fleets", d.PersianFleets),
			zap.Strings("actions", d.Actions),
		)
		if x.Snapshot.GameOver {
			winner := x.Snapshot.Winner
			if winner == "" {
				winner = "Draw"
			}
			fields = append(fields, zap.Bool("game_over", true), zap.String("winner", winner))
		}
	}
	l.logger.Info("exchange", fields...)
}
