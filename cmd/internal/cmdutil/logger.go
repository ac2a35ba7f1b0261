package cmdutil

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type loggerConfig struct {
	level string
	json  bool
}

var loggerConfigInst = loggerConfig{
	level: zerolog.InfoLevel.String(),
}

func RegisterLoggerFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&loggerConfigInst.level,
		"level",
		loggerConfigInst.level,
		"what level to log at - maps to zerolog.Level",
	)
	cmd.PersistentFlags().BoolVar(
		&loggerConfigInst.json,
		"log-json",
		false,
		"whether to log JSON lines instead of console output",
	)
}

func Logger() (zerolog.Logger, error) {
	return newLogger(os.Stderr, loggerConfigInst)
}

func newLogger(w io.Writer, c loggerConfig) (zerolog.Logger, error) {
	if !c.json {
		w = zerolog.ConsoleWriter{Out: w}
	}
	logger := zerolog.New(w).With().Timestamp().Logger()
	lvl, err := zerolog.ParseLevel(c.level)
	if err != nil {
		return logger, err
	}
	return logger.Level(lvl), err
}
