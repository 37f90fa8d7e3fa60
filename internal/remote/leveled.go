package remote

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/soyeahso/kirpich/internal/logging"
)

// leveledLogger adapts logging.Logger to retryablehttp.LeveledLogger.
// retryablehttp logs every attempt at debug level, so Info is lowered too.
type leveledLogger struct {
	log *logging.Logger
}

func (l leveledLogger) Error(msg string, kv ...any) { write(l.log.Error(), msg, kv) }
func (l leveledLogger) Warn(msg string, kv ...any)  { write(l.log.Warn(), msg, kv) }
func (l leveledLogger) Info(msg string, kv ...any)  { write(l.log.Debug(), msg, kv) }
func (l leveledLogger) Debug(msg string, kv ...any) { write(l.log.Trace(), msg, kv) }

func write(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		switch v := kv[i+1].(type) {
		case *http.Request:
			ev = ev.Str(key, v.Method+" "+v.URL.Path)
		case *http.Response:
			ev = ev.Int(key, v.StatusCode)
		case error:
			ev = ev.AnErr(key, v)
		default:
			ev = ev.Str(key, fmt.Sprint(v))
		}
	}
	ev.Msg(msg)
}
