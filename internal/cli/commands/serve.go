package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/internal/cli/config"
	"github.com/conduit-lang/metamodel/internal/cli/ui"
	"github.com/conduit-lang/metamodel/internal/metamodel/engine"
	"github.com/conduit-lang/metamodel/internal/web/auth"
	"github.com/conduit-lang/metamodel/internal/web/events"
	"github.com/conduit-lang/metamodel/internal/web/metaapi"
	"github.com/conduit-lang/metamodel/internal/web/profiling"
	"github.com/conduit-lang/metamodel/internal/web/ratelimit"
	"github.com/conduit-lang/metamodel/internal/web/server"
	"github.com/conduit-lang/metamodel/runtime/metadata"
)

// newIntrospectServeCommand creates the 'introspect serve' command
func newIntrospectServeCommand(opts *introspectOptions) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the metamodel over HTTP",
		Long: `Serve the metamodel over a read-only HTTP API.

The server starts listening before the build runs. Until the build is
published every query answers 503; a failed build keeps answering 503 with
the failure report. GET /healthz always answers. With server.auth_secret set, every other
route requires a bearer token from 'metamodel token'.

Routes (under server.api_prefix):
  GET /types?pattern=
  GET /types/{id}
  GET /types/{id}/dependencies?depth=&reverse=&types=
  GET /types/{id}/references
  GET /snapshot
  GET /cycles
  GET /events (websocket, build progress)`,
		Example: `  # Serve on the configured host and port
  metamodel introspect serve

  # Serve on another address
  metamodel introspect serve --address 0.0.0.0:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			opts.applyExclude(cmd, cfg)

			logger, err := opts.logger(cfg, true)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if address == "" {
				address = cfg.Server.Address()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger, address, cmd.ErrOrStderr(), opts.noColor)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Listen address (default: server.host:server.port)")

	return cmd
}

// serve listens, builds the metamodel in the background and serves queries
// until ctx is done. Shutdown unregisters the snapshot and clears the cache.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger, address string, out io.Writer, noColor bool) error {
	hub := events.NewHub(logger)
	engOpts := engineOptions(cfg, logger)
	engOpts.Observer = hub.ObserveWave
	eng := engine.New(engOpts)

	apiOpts := []metaapi.Option{
		metaapi.WithLogger(logger),
		metaapi.WithPrefix(cfg.Server.APIPrefix),
		metaapi.WithEvents(hub),
	}
	if cfg.Server.Profiling {
		apiOpts = append(apiOpts, metaapi.WithProfiling(profiling.DefaultConfig()))
	}
	if cfg.Server.AuthSecret != "" {
		tokens, err := auth.NewTokenService(cfg.Server.AuthSecret, cfg.Server.TokenTTL)
		if err != nil {
			return err
		}
		apiOpts = append(apiOpts, metaapi.WithAuth(tokens))
	}
	limiter, err := newRateLimiter(cfg.Server)
	if err != nil {
		return err
	}
	if limiter != nil {
		apiOpts = append(apiOpts, metaapi.WithRateLimiter(limiter))
	}
	api := metaapi.New(eng.Cache(), apiOpts...)

	srvConfig := server.DefaultConfig(api.Routes())
	srvConfig.Address = address
	srvConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	srvConfig.Logger = logger

	srv, err := server.New(srvConfig)
	if err != nil {
		if limiter != nil {
			limiter.Close()
		}
		return err
	}
	if err := srv.Listen(); err != nil {
		if limiter != nil {
			limiter.Close()
		}
		return err
	}
	if limiter != nil {
		srv.RegisterHook(func(context.Context) error { return limiter.Close() })
	}
	srv.RegisterHook(func(context.Context) error { return hub.Close() })

	built := make(chan struct{})
	srv.RegisterHook(func(ctx context.Context) error {
		select {
		case <-built:
		case <-ctx.Done():
			return fmt.Errorf("metamodel build still running: %w", ctx.Err())
		}
		metadata.Reset()
		eng.Close()
		return nil
	})

	ui.WriteSuccess(out, fmt.Sprintf("Serving metamodel on http://%s%s", srv.Addr(), cfg.Server.APIPrefix), noColor)

	go func() {
		defer close(built)
		if err := buildAndRegister(eng); err != nil {
			logger.Error("metamodel unavailable", zap.Strings("failures", failureLines(err)))
			hub.Publish(events.Event{Type: events.TypeFailed, Failures: failureLines(err)})
			return
		}
		report := eng.Report()
		hub.Publish(events.Event{Type: events.TypePublished, BuildID: report.BuildID.String(), Types: report.Types})
	}()

	return srv.Run(ctx)
}

// closingLimiter is a rate limiter holding a resource released on shutdown
type closingLimiter interface {
	ratelimit.RateLimiter
	Close() error
}

// newRateLimiter returns the limiter the server config asks for, or nil
// when throttling is off
func newRateLimiter(cfg config.ServerConfig) (closingLimiter, error) {
	if cfg.RateLimit <= 0 {
		return nil, nil
	}

	if cfg.RateLimitRedis != "" {
		redisConfig := ratelimit.DefaultRedisConfig(redis.NewClient(&redis.Options{Addr: cfg.RateLimitRedis}))
		redisConfig.Limit = cfg.RateLimit
		limiter, err := ratelimit.NewRedisLimiter(redisConfig)
		if err != nil {
			redisConfig.Client.Close()
			return nil, err
		}
		return limiter, nil
	}

	limiterConfig := ratelimit.DefaultTokenBucketConfig()
	limiterConfig.Capacity = cfg.RateLimit
	return ratelimit.NewTokenBucket(limiterConfig), nil
}
