package log

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level       string    `mapstructure:"level"`
	Pretty      bool      `mapstructure:"pretty"`
	ServiceName string    `mapstructure:"service_name"`
	Output      io.Writer `mapstructure:"-"` // stdout when nil
}

var (
	global   = zerolog.New(os.Stdout).With().Timestamp().Logger()
	initOnce sync.Once
)

// New builds a JSON logger, or a console logger when Pretty is set.
// Unknown levels fall back to info.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(out).Level(levelOf(cfg.Level)).With().Timestamp()
	if cfg.ServiceName != "" {
		ctx = ctx.Str(FieldService, cfg.ServiceName)
	}
	return ctx.Logger()
}

// Init replaces the global logger on its first call and sends stdlib log
// output through it. Later calls are no-ops. The level is applied process
// wide so SetLevel can raise or lower it afterwards.
func Init(cfg Config) {
	initOnce.Do(func() {
		level := cfg.Level
		cfg.Level = zerolog.LevelTraceValue
		global = New(cfg)
		SetLevel(level)

		stdlog.SetFlags(0)
		stdlog.SetOutput(global.With().Str("source", "stdlog").Logger())
	})
}

// L returns the global logger.
func L() zerolog.Logger {
	return global
}

// SetLevel sets the process-wide minimum level.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(levelOf(level))
}

func levelOf(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return zerolog.InfoLevel
	case "off":
		return zerolog.Disabled
	case "warning":
		return zerolog.WarnLevel
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
