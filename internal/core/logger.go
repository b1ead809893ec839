package core

import "github.com/rs/zerolog"

// Logger is the minimal structured logging surface the service depends on.
// Args are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps the provided zerolog logger.
func NewZerologLogger(logger zerolog.Logger) ZerologLogger {
	return ZerologLogger{logger: logger}
}

func (l ZerologLogger) Debug(msg string, args ...any) { emit(l.logger.Debug(), msg, args) }
func (l ZerologLogger) Info(msg string, args ...any)  { emit(l.logger.Info(), msg, args) }
func (l ZerologLogger) Warn(msg string, args ...any)  { emit(l.logger.Warn(), msg, args) }
func (l ZerologLogger) Error(msg string, args ...any) { emit(l.logger.Error(), msg, args) }

func emit(ev *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, args[i+1])
	}
	ev.Msg(msg)
}
