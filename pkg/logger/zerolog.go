package logger

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// ZerologLogger writes one JSON object per message.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger creates a JSON logger writing to w.
func NewZerologLogger(w io.Writer) *ZerologLogger {
	return &ZerologLogger{zl: zerolog.New(w).With().Timestamp().Str("app", "roza").Logger()}
}

func (z *ZerologLogger) Info(format string, args ...interface{}) {
	z.zl.Info().Msg(fmt.Sprintf(format, args...))
}

func (z *ZerologLogger) Warning(format string, args ...interface{}) {
	z.zl.Warn().Msg(fmt.Sprintf(format, args...))
}

func (z *ZerologLogger) Error(format string, args ...interface{}) {
	z.zl.Error().Msg(fmt.Sprintf(format, args...))
}

func (z *ZerologLogger) Close() error {
	return nil
}

var _ Logger = (*ZerologLogger)(nil)
