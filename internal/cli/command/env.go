package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/walletlink-go/internal/backend"
	"github.com/yndnr/walletlink-go/internal/cli/config"
	"github.com/yndnr/walletlink-go/internal/core/service"
	"github.com/yndnr/walletlink-go/internal/infra/confloader"
	"github.com/yndnr/walletlink-go/internal/infra/tlsroots"
	"github.com/yndnr/walletlink-go/internal/provider"
	"github.com/yndnr/walletlink-go/internal/storage"
	"github.com/yndnr/walletlink-go/internal/telemetry/logger"
	"github.com/yndnr/walletlink-go/internal/telemetry/metric"
)

// Deps overrides parts of the environment. Injected values are not
// closed by Env.
type Deps struct {
	Provider provider.Provider
	Store    storage.Store
	Backend  []backend.Option
}

// Env is the wired set of session services for one command invocation.
type Env struct {
	Config *config.Config
	Loader *confloader.Loader
	Log    logger.Logger

	Store    storage.Store
	Provider provider.Provider
	Backend  *backend.Client
	Metrics  *metric.Registry

	State *service.State
	Conn  *service.ConnectionManager
	Auth  *service.Authenticator
	Boot  *service.Bootstrapper

	closers []func() error
}

// NewEnv wires the session services for cfg. A provider is dialed only
// when cfg.Provider.URL is set.
func NewEnv(ctx context.Context, cfg *config.Config, log logger.Logger, deps Deps) (*Env, error) {
	log = logger.OrDefault(log)
	env := &Env{Config: cfg, Log: log, Metrics: metric.NewRegistry()}

	env.Store = deps.Store
	if env.Store == nil {
		st, err := storage.Open(cfg.Storage, log)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		env.Store = st
		env.closers = append(env.closers, st.Close)
	}

	env.Provider = deps.Provider
	if env.Provider == nil && cfg.Provider.URL != "" {
		dialCtx, cancel := ctx, context.CancelFunc(func() {})
		if cfg.Provider.ConnectTimeout > 0 {
			dialCtx, cancel = context.WithTimeout(ctx, cfg.Provider.ConnectTimeout)
		}
		p, err := provider.Dial(dialCtx, cfg.Provider.RPC(), log)
		cancel()
		if err != nil {
			env.Close()
			return nil, err
		}
		env.Provider = p
		env.closers = append(env.closers, func() error { p.Close(); return nil })
	}

	env.State = service.NewState()
	opts := []service.Option{service.WithLogger(log), service.WithMetrics(env.Metrics)}

	backendOpts := []backend.Option{
		backend.WithLogger(log),
		backend.WithTokenSource(env.State.Token),
		backend.OnAuthorized(func() { env.Auth.Confirm() }),
		backend.OnUnauthorized(func(ctx context.Context) {
			if err := env.Auth.Invalidate(ctx); err != nil {
				log.Warn("failed to drop rejected session", "error", err)
			}
		}),
	}
	if cfg.Backend.TLS.Enabled() {
		tlsCfg, w, err := tlsroots.ClientTLS(cfg.Backend.TLS, log)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("backend tls: %w", err)
		}
		backendOpts = append(backendOpts, backend.WithTLSConfig(tlsCfg))
		if w != nil {
			w.StartAsync()
			env.closers = append(env.closers, w.Stop)
		}
	}
	env.Backend = backend.NewClient(cfg.Backend, append(backendOpts, deps.Backend...)...)

	connCfg := service.DefaultConnectionConfig()
	if cfg.Provider.ConnectTimeout > 0 {
		connCfg.Timeout = cfg.Provider.ConnectTimeout
	}
	env.Conn = service.NewConnectionManager(env.State, env.Provider, env.Store, env.Backend, connCfg, opts...)
	env.Auth = service.NewAuthenticator(env.State, env.Provider, env.Backend, env.Store, opts...)
	env.Boot = service.NewBootstrapper(env.State, env.Conn, env.Store, opts...)

	if err := env.Metrics.RegisterSession(env.State.Snapshot); err != nil {
		env.Close()
		return nil, fmt.Errorf("register session metrics: %w", err)
	}
	return env, nil
}

// Close releases what the environment opened, in reverse order.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// envFrom returns the command environment, creating it on first use.
func envFrom(c *cli.Context) (*Env, error) {
	if env, ok := c.App.Metadata[metaEnv].(*Env); ok {
		return env, nil
	}
	cfg, loader := configFrom(c)
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	deps, _ := c.App.Metadata[metaDeps].(Deps)

	env, err := NewEnv(c.Context, cfg, loggerFrom(c), deps)
	if err != nil {
		return nil, err
	}
	env.Loader = loader
	c.App.Metadata[metaEnv] = env
	return env, nil
}

// withEnv adapts an action that needs the session services.
func withEnv(fn func(c *cli.Context, env *Env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		env, err := envFrom(c)
		if err != nil {
			return err
		}
		return fn(c, env)
	}
}
