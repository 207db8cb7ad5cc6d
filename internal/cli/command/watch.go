package command

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/walletlink-go/internal/cli/config"
	"github.com/yndnr/walletlink-go/internal/cli/output"
	"github.com/yndnr/walletlink-go/internal/core/domain"
	"github.com/yndnr/walletlink-go/internal/infra/confloader"
	"github.com/yndnr/walletlink-go/internal/infra/shutdown"
	"github.com/yndnr/walletlink-go/internal/telemetry/logger"
)

const shutdownTimeout = 10 * time.Second

// WatchCommand returns the watch command.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Restore the session and follow wallet changes until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address",
			},
		},
		Action: withEnv(watchAction),
	}
}

func watchAction(c *cli.Context, env *Env) error {
	if inShell(c) {
		return errInsideShell
	}
	if !env.Conn.HasProvider() {
		return domain.ErrProviderUnavailable.WithDetails("set provider.url or --provider-url")
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	log := env.Log.With("component", "watch")
	h := shutdown.NewHandler(shutdownTimeout, env.Log)

	f, format := formatterFrom(c)
	if format == output.FormatJSON {
		f = &output.JSONFormatter{Compact: true}
	}
	w := writer(c)
	printState := func(s domain.Session) {
		view := output.NewStatusView(s)
		if format == output.FormatTable {
			fmt.Fprintln(w, summary(view))
			return
		}
		if err := f.Format(w, view); err != nil {
			log.Warn("failed to write state", "error", err)
		}
	}

	unsubscribe := env.State.Subscribe(printState)
	h.OnShutdown(func(context.Context) error {
		unsubscribe()
		return nil
	})

	outcome := env.Boot.Restore(ctx)
	log.Info("session restore finished", "outcome", outcome.String())
	printState(env.State.Snapshot())

	runDone := make(chan error, 1)
	go func() {
		err := env.Conn.Run(ctx)
		runDone <- err
		if err != nil {
			h.Trigger()
		}
	}()
	h.OnShutdown(func(hctx context.Context) error {
		cancel()
		select {
		case err := <-runDone:
			return err
		case <-hctx.Done():
			return hctx.Err()
		}
	})

	addr := c.String("metrics-addr")
	if addr == "" {
		addr = env.Config.Metrics.Address
	}
	if addr != "" {
		srv, err := serveMetrics(addr, env)
		if err != nil {
			cancel()
			<-runDone
			return err
		}
		h.OnShutdown(srv.Shutdown)
	}

	if env.Loader != nil && env.Loader.FilePath() != "" {
		watcher, err := watchConfig(env, c.App.Metadata[metaFlags])
		if err != nil {
			log.Warn("configuration reload disabled", "error", err)
		} else {
			h.OnShutdown(func(context.Context) error { return watcher.Stop() })
		}
	}

	return h.Wait(ctx)
}

// summary renders one line per state change.
func summary(v output.StatusView) string {
	line := "phase=" + v.Phase
	if v.Address != "" {
		line += " address=" + v.Address
	}
	if v.ChainID != 0 {
		line += fmt.Sprintf(" chain=%d", v.ChainID)
	}
	line += fmt.Sprintf(" authenticated=%t", v.Authenticated)
	if v.Provisional {
		line += " provisional=true"
	}
	if v.Error != "" {
		line += fmt.Sprintf(" error=%q", v.Error)
	}
	return line
}

func serveMetrics(addr string, env *Env) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", env.Metrics.Handler())
	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		env.Log.Info("metrics listening", "addr", srv.Addr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			env.Log.Error("metrics server error", "error", err)
		}
	}()
	return srv, nil
}

// watchConfig re-applies the log level when the configuration file changes.
func watchConfig(env *Env, flags any) (*confloader.Watcher, error) {
	overrides, _ := flags.(map[string]any)
	path := env.Loader.FilePath()

	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(env.Log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return nil, err
	}
	w.OnChange(func(string) {
		cfg, _, err := config.Load(path, overrides)
		if err != nil {
			env.Log.Warn("ignoring invalid configuration change", "error", err)
			return
		}
		before := logger.GetLevel()
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			env.Log.Warn("ignoring log level change", "error", err)
			return
		}
		if after := logger.GetLevel(); after != before {
			env.Log.Info("log level changed", "level", after)
		}
	})
	w.StartAsync()
	return w, nil
}
