package middleware

import (
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strings"
)

const pprofPrefix = "/debug/pprof"

// Profiling mounts the pprof handlers under /debug/pprof ahead of next.
// It is a pass-through when disabled or when env is production, since the
// profiles expose memory contents.
func Profiling(enabled bool, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		if env == "production" || env == "prod" {
			slog.Error("refusing to expose profiling endpoints in production", "environment", env)
			return next
		}

		slog.Warn("profiling endpoints enabled", "environment", env, "endpoints", pprofPrefix+"/*")

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != pprofPrefix && !strings.HasPrefix(r.URL.Path, pprofPrefix+"/") {
				next.ServeHTTP(w, r)
				return
			}
			switch strings.TrimPrefix(r.URL.Path, pprofPrefix+"/") {
			case "cmdline":
				pprof.Cmdline(w, r)
			case "profile":
				pprof.Profile(w, r)
			case "symbol":
				pprof.Symbol(w, r)
			case "trace":
				pprof.Trace(w, r)
			default:
				pprof.Index(w, r)
			}
		})
	}
}
