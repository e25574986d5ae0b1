// Package daemon wires murmurd's components with fx.
package daemon

import (
	"context"
	"fmt"

	"github.com/matheus3301/murmur/internal/api"
	"github.com/matheus3301/murmur/internal/completion"
	"github.com/matheus3301/murmur/internal/config"
	"github.com/matheus3301/murmur/internal/llm"
	"github.com/matheus3301/murmur/internal/logging"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Params holds what main resolved from flags.
type Params struct {
	EnvFile string
	Config  *config.Server // optional override for testing; nil = load from env
	Logger  *zap.Logger    // optional override for testing
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBackend,
			providePipeline,
			provideServer,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Server, error) {
	if p.Config != nil {
		return p.Config, nil
	}
	return config.LoadServer(p.EnvFile)
}

func provideLogger(p Params, cfg *config.Server) (*zap.Logger, error) {
	if p.Logger != nil {
		return p.Logger, nil
	}
	return logging.New(cfg.LogPath, "murmurd")
}

func provideBackend(cfg *config.Server, logger *zap.Logger) (llm.Backend, error) {
	switch cfg.Backend {
	case config.BackendEcho:
		return llm.Echo{}, nil
	case config.BackendOpenAI:
		return llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, logger.Named("llm")), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func providePipeline(cfg *config.Server, backend llm.Backend, logger *zap.Logger) *completion.Pipeline {
	return completion.New(backend, cfg.Model, logger.Named("completion"))
}

func provideServer(cfg *config.Server, pipeline *completion.Pipeline, logger *zap.Logger) *api.Server {
	return api.NewServer(cfg, pipeline, logger.Named("http"))
}

func registerLifecycle(lc fx.Lifecycle, srv *api.Server, cfg *config.Server, logger *zap.Logger, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Bind synchronously so a busy port fails startup.
			if err := srv.Listen(); err != nil {
				return err
			}
			logger.Info("daemon started",
				zap.String("addr", srv.Addr()),
				zap.String("backend", cfg.Backend),
				zap.String("model", cfg.Model),
			)
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("http server error", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil {
				logger.Warn("error stopping http server", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
