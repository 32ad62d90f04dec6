// Package profiling mounts pprof endpoints on the query API router.
//
// Profiling endpoints expose goroutine stacks and memory contents. They are
// off unless server.profiling is set and should only be enabled on servers
// bound to a trusted interface.
package profiling

import (
	"net/http/pprof"
	"runtime"

	"github.com/go-chi/chi/v5"
)

// Config holds profiling configuration
type Config struct {
	// Enabled determines if profiling routes are mounted
	Enabled bool

	// Path is the URL path prefix for profiling endpoints (default: "/debug/pprof")
	Path string

	// BlockRate sets the block profiling rate (0 leaves it disabled)
	BlockRate int

	// MutexFraction sets the mutex profiling fraction (0 leaves it disabled)
	MutexFraction int
}

// DefaultConfig returns the profiling configuration used when profiling is
// switched on
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		Path:          "/debug/pprof",
		BlockRate:     1,
		MutexFraction: 1,
	}
}

// RegisterRoutes mounts the pprof handlers on router. A nil config means
// DefaultConfig.
func RegisterRoutes(router chi.Router, config *Config) {
	if config == nil {
		config = DefaultConfig()
	}
	if !config.Enabled {
		return
	}

	if config.BlockRate > 0 {
		runtime.SetBlockProfileRate(config.BlockRate)
	}
	if config.MutexFraction > 0 {
		runtime.SetMutexProfileFraction(config.MutexFraction)
	}

	path := config.Path
	if path == "" {
		path = "/debug/pprof"
	}

	router.Route(path, func(r chi.Router) {
		r.HandleFunc("/", pprof.Index)
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)

		for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
			r.Handle("/"+name, pprof.Handler(name))
		}
	})
}
