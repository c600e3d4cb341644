package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a logged 500 with the API error body.
// http.ErrAbortHandler is re-raised so the server can abort the connection.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				zctx.From(r.Context()).Error("Panic recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)

				var e jx.Encoder
				e.Obj(func(e *jx.Encoder) {
					e.Field("code", func(e *jx.Encoder) { e.Int(http.StatusInternalServerError) })
					e.Field("message", func(e *jx.Encoder) { e.Str("internal server error") })
				})
				w.Header().Set("Connection", "close")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write(e.Bytes())
			}()
			next.ServeHTTP(w, r)
		})
	}
}
