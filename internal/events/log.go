package events

import "github.com/rs/zerolog"

// Log writes events to a zerolog logger at debug level, so the event stream
// can be followed without a broker.
type Log struct{ log zerolog.Logger }

func NewLog(log zerolog.Logger) Log { return Log{log: log} }

func (l Log) Publish(e Event) {
	z := l.log.Debug().Str("event", e.Name).Str("event_id", e.ID)
	if e.Model != "" {
		z = z.Str("model", e.Model)
	}
	if len(e.Fields) > 0 {
		z = z.Fields(e.Fields)
	}
	z.Msg("lifecycle event")
}
