package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger создаёт корневой логгер. В dev-окружении пишем цветную
// консоль на debug-уровне, иначе JSON на info.
func NewLogger(appEnv string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	level := zerolog.InfoLevel
	if appEnv == "dev" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
		level = zerolog.DebugLevel
	}
	return zerolog.New(out).Level(level).With().
		Timestamp().
		Str("service", "tg-clip-bot").
		Logger()
}
