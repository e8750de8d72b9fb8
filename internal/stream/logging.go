package stream

import (
	"github.com/pion/logging"
	"github.com/rs/zerolog"
)

// zerologLoggerFactory adapts the project's zerolog.Logger to the
// pion/logging.LoggerFactory interface so the DTLS transport's internal
// diagnostics flow through the same structured sink as the rest of the
// worker.
type zerologLoggerFactory struct {
	base zerolog.Logger
}

// NewLoggerFactory returns a pion logging.LoggerFactory backed by base,
// tagging every message with the pion scope that produced it.
func NewLoggerFactory(base zerolog.Logger) logging.LoggerFactory {
	return &zerologLoggerFactory{base: base}
}

func (f *zerologLoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return &zerologLeveledLogger{log: f.base.With().Str("pion_scope", scope).Logger()}
}

type zerologLeveledLogger struct {
	log zerolog.Logger
}

func (l *zerologLeveledLogger) Trace(msg string)                          { l.log.Trace().Msg(msg) }
func (l *zerologLeveledLogger) Tracef(format string, args ...interface{}) { l.log.Trace().Msgf(format, args...) }
func (l *zerologLeveledLogger) Debug(msg string)                          { l.log.Debug().Msg(msg) }
func (l *zerologLeveledLogger) Debugf(format string, args ...interface{}) { l.log.Debug().Msgf(format, args...) }
func (l *zerologLeveledLogger) Info(msg string)                           { l.log.Info().Msg(msg) }
func (l *zerologLeveledLogger) Infof(format string, args ...interface{})  { l.log.Info().Msgf(format, args...) }
func (l *zerologLeveledLogger) Warn(msg string)                           { l.log.Warn().Msg(msg) }
func (l *zerologLeveledLogger) Warnf(format string, args ...interface{})  { l.log.Warn().Msgf(format, args...) }
func (l *zerologLeveledLogger) Error(msg string)                          { l.log.Error().Msg(msg) }
func (l *zerologLeveledLogger) Errorf(format string, args ...interface{}) { l.log.Error().Msgf(format, args...) }
