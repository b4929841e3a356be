package probe

import (
	"fmt"

	"go.uber.org/zap"
)

// LogSink writes one log entry per step, value in scientific notation.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink logs through l.
func NewLogSink(l *zap.Logger) *LogSink {
	if l == nil {
		l = zap.NewNop()
	}
	return &LogSink{log: l}
}

func (s *LogSink) Write(r Record) error {
	s.log.Info("probe",
		zap.Int("step", r.Step),
		zap.String("value", fmt.Sprintf("%.6e", r.Value)))
	return nil
}
