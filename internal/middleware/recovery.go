package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/mcoot/bughunt/internal/metrics"
)

// PanicHandler writes the response for a request whose handler panicked
type PanicHandler func(w http.ResponseWriter, r *http.Request, err any)

// Recovery turns handler panics into a response from handler. The panic is
// logged with its route template and counted per route. http.ErrAbortHandler
// is re-raised so net/http can abort the connection as intended.
func Recovery(logger *slog.Logger, handler PanicHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				route := RouteTemplate(r)
				metrics.HTTPPanicsTotal.WithLabelValues(route).Inc()
				logger.Error("panic recovered",
					slog.String("error", fmt.Sprint(rec)),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("route", route),
					slog.String("stack", string(debug.Stack())),
				)

				handler(w, r, rec)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
