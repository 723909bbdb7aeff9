package feedback

import "log/slog"

// Indication is a named pairing event shown to the user.
type Indication string

const (
	IndicationSearching     Indication = "searching"
	IndicationConnected     Indication = "connected"
	IndicationPairedSuccess Indication = "paired-success"
)

// Sink renders feedback. The receiver never draws anything itself.
type Sink interface {
	Indicate(ind Indication)
	ShowImage(img Image)
}

// NopSink discards all feedback.
type NopSink struct{}

func (NopSink) Indicate(Indication) {}
func (NopSink) ShowImage(Image)     {}

// LogSink writes feedback to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Indicate(ind Indication) {
	if ind == IndicationSearching {
		s.logger.Debug("feedback indication", "indication", string(ind))
		return
	}
	s.logger.Info("feedback indication", "indication", string(ind))
}

func (s *LogSink) ShowImage(img Image) {
	s.logger.Debug("feedback image", "image", img.Compact())
}
