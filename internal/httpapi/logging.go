package httpapi

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off":
		return LevelOff
	case "error":
		return LevelError
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// requestLogger writes /embedding start and end records. A nil z falls back
// to log.Printf.
type requestLogger struct {
	z   *zerolog.Logger
	def LogLevel
}

func newRequestLogger(z *zerolog.Logger, level string) requestLogger {
	return requestLogger{z: z, def: parseLevel(level)}
}

// level honors ?log=<level> (or ?log=1 for debug) and the X-Log-Level header
// before the configured default.
func (l requestLogger) level(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return l.def
}

// encodeLog describes one /embedding request for logging.
type encodeLog struct {
	model  string
	texts  int
	status int
	start  time.Time
	err    error
}

// end logs the outcome of a request. Failures log at LevelError and above,
// successes at LevelInfo and above.
func (l requestLogger) end(r *http.Request, lvl LogLevel, e encodeLog) {
	if lvl == LevelOff || (e.err == nil && lvl < LevelInfo) {
		return
	}
	dur := time.Since(e.start)
	if l.z == nil {
		log.Printf("embedding end status=%d model=%s texts=%d dur=%s err=%v", e.status, e.model, e.texts, dur, e.err)
		return
	}
	z := l.z.Info()
	if e.err != nil {
		z = l.z.Warn().Err(e.err)
	}
	z = z.Int("status", e.status).Str("model", e.model).Int("texts", e.texts).Dur("dur", dur)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	z.Msg("embedding end")
}

func (l requestLogger) start(r *http.Request, lvl LogLevel, model string, texts int) {
	if lvl < LevelDebug {
		return
	}
	if l.z == nil {
		log.Printf("embedding start model=%s texts=%d", model, texts)
		return
	}
	z := l.z.Debug().Str("model", model).Int("texts", texts)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	z.Msg("embedding start")
}
