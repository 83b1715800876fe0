package progress

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogWriter adapts a *zap.Logger into the io.Writer the progress bar renders
// to, so progress frames can be emitted into a log sink instead of a
// terminal. Carriage returns and padding the bar uses for in-place redraw are
// stripped; empty frames are dropped.
type LogWriter struct {
	logger *zap.Logger
	level  zapcore.Level
}

// NewLogWriter creates a writer that logs each rendered frame at the given
// level.
func NewLogWriter(logger *zap.Logger, level zapcore.Level) *LogWriter {
	return &LogWriter{logger: logger, level: level}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	line := strings.Trim(string(p), "\r\n\t ")
	if line != "" {
		w.logger.Log(w.level, line)
	}
	return len(p), nil
}
