// Package logging builds the process-wide zap logger from a small
// Config: one logger constructed once at startup and handed down
// explicitly into every pkg/... package that needs to log.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Profile selects the zap encoder: STRUCTURED (JSON, for production
// log aggregation) or CONSOLE (human-readable, for a terminal).
type Profile string

const (
	ProfileStructured Profile = "STRUCTURED"
	ProfileConsole    Profile = "CONSOLE"
)

// Config carries the logging settings webhunt needs: a level and an
// output profile. internal/cmd fills it from the --log-level and
// --log-profile flags before reaching here.
type Config struct {
	Level   string
	Profile string
}

// New builds a *zap.Logger from cfg. An empty Level defaults to info;
// an empty or unrecognized Profile defaults to structured JSON output.
func New(cfg Config) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var encoderCfg zapcore.EncoderConfig
	var encoder zapcore.Encoder
	switch Profile(strings.ToUpper(cfg.Profile)) {
	case ProfileConsole:
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		encoderCfg = zap.NewProductionEncoderConfig()
		encoderCfg.TimeKey = "ts"
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), level)
	return zap.New(core, zap.AddCaller()), nil
}

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zap.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("logging: invalid level %q: %w", s, err)
	}
	return level, nil
}
