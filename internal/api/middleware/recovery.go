package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/campus-events/server/internal/api/problem"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into a 500 problem response. The stack is
// logged and never sent to the client.
func Recovery(env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}

				zerolog.Ctx(r.Context()).Error().
					Interface("panic", recovered).
					Str("stack", string(debug.Stack())).
					Str("path", r.URL.Path).
					Msg("panic recovered")

				problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", nil, env,
					problem.WithDetail(panicDetail(recovered, env)))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func panicDetail(recovered any, env string) string {
	if env == "development" || env == "test" {
		return fmt.Sprintf("panic: %v", recovered)
	}
	return "An unexpected error occurred"
}
