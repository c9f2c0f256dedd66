// Package cutlog provides structured JSON logging using zerolog, shared by
// every long-running component (workers, drivers, the watchdog, the
// service) so a task's activity can be traced by taskId across threads.
package cutlog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger. Call once at process startup.
func Init(level string, pretty bool) {
	logLevel := zerolog.InfoLevel
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(logLevel)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// Logger returns the global logger instance.
func Logger() zerolog.Logger {
	return log.Logger
}

// ForTask returns a logger with the taskId and material fields attached,
// used by drivers and workers so every line they emit can be grepped by
// task.
func ForTask(taskID, material string) zerolog.Logger {
	return log.Logger.With().Str("taskId", taskID).Str("material", material).Logger()
}

// ForComponent returns a logger tagged with a component name, used by the
// service and the watchdog.
func ForComponent(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
