package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// initLog configures the global logger from TRACEPACK_LOG_FORMAT and
// TRACEPACK_LOG_LEVEL. Logs go to stderr so stdout carries the report.
func initLog(verbose bool) {
	if viper.GetString("log_format") != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !term.IsTerminal(int(os.Stderr.Fd()))})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	level, _ := zerolog.ParseLevel(viper.GetString("log_level"))
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
}
