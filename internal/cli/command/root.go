package command

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/walletlink-go/internal/cli/config"
	"github.com/yndnr/walletlink-go/internal/cli/output"
	"github.com/yndnr/walletlink-go/internal/infra/buildinfo"
	"github.com/yndnr/walletlink-go/internal/infra/confloader"
	"github.com/yndnr/walletlink-go/internal/telemetry/logger"
)

// Metadata keys.
const (
	metaConfig = "config"
	metaLoader = "loader"
	metaLogger = "logger"
	metaFlags  = "flags"
	metaDeps   = "deps"
	metaEnv    = "env"
	metaQuiet  = "quiet"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:     "walletlink",
		Usage:    "Connect a wallet and authenticate against a backend",
		Version:  buildinfo.String(),
		Flags:    globalFlags(),
		Metadata: map[string]any{},
		Commands: []*cli.Command{
			ConnectCommand(),
			LoginCommand(),
			LogoutCommand(),
			StatusCommand(),
			RequestCommand(),
			WatchCommand(),
			ShellCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		Before: setup,
		After:  teardown,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file (default: ~/.walletlink/config.yaml)",
			EnvVars: []string{"WALLETLINK_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "backend-url",
			Usage: "Backend base URL",
		},
		&cli.StringFlag{
			Name:  "provider-url",
			Usage: "Wallet signer JSON-RPC endpoint (http, ws or IPC path)",
		},
		&cli.StringFlag{
			Name:  "store",
			Usage: "Session store: memory, badger, redis",
		},
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "Badger data directory",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Suppress progress output",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Shorthand for --log-level debug",
		},
	}
}

// flagKeys maps global flags to configuration keys.
var flagKeys = map[string]string{
	"backend-url":  "backend.url",
	"provider-url": "provider.url",
	"store":        "storage.backend",
	"data-dir":     "storage.dir",
	"output":       "output",
	"log-level":    "log.level",
}

// flagOverrides collects the flags the user set as configuration keys.
func flagOverrides(c *cli.Context) map[string]any {
	m := make(map[string]any)
	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			m[key] = c.String(flag)
		}
	}
	if c.Bool("verbose") {
		m["log.level"] = "debug"
	}
	return m
}

func setup(c *cli.Context) error {
	if inShell(c) {
		return nil
	}
	flags := flagOverrides(c)
	cfg, loader, err := config.Load(c.String("config"), flags)
	if err != nil {
		return err
	}

	logCfg := cfg.Log
	logCfg.Output = c.App.ErrWriter
	if logCfg.Output == nil {
		logCfg.Output = os.Stderr
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	c.App.Metadata[metaConfig] = cfg
	c.App.Metadata[metaLoader] = loader
	c.App.Metadata[metaLogger] = log
	c.App.Metadata[metaFlags] = flags
	c.App.Metadata[metaQuiet] = c.Bool("quiet")
	return nil
}

func teardown(c *cli.Context) error {
	if inShell(c) {
		return nil
	}
	if env, ok := c.App.Metadata[metaEnv].(*Env); ok {
		delete(c.App.Metadata, metaEnv)
		return env.Close()
	}
	return nil
}

// configFrom returns the configuration loaded by setup.
func configFrom(c *cli.Context) (*config.Config, *confloader.Loader) {
	cfg, _ := c.App.Metadata[metaConfig].(*config.Config)
	loader, _ := c.App.Metadata[metaLoader].(*confloader.Loader)
	return cfg, loader
}

// loggerFrom returns the logger created by setup.
func loggerFrom(c *cli.Context) logger.Logger {
	l, _ := c.App.Metadata[metaLogger].(logger.Logger)
	return logger.OrDefault(l)
}

// formatterFrom returns the formatter selected by configuration.
func formatterFrom(c *cli.Context) (output.Formatter, output.Format) {
	format := output.FormatTable
	if cfg, _ := configFrom(c); cfg != nil {
		if f, err := output.ParseFormat(cfg.Output); err == nil {
			format = f
		}
	}
	return output.NewFormatter(format), format
}

// render writes data to the app writer in the configured format.
func render(c *cli.Context, data any) error {
	f, _ := formatterFrom(c)
	return f.Format(writer(c), data)
}

// quiet reports whether progress output is suppressed. Inside a shell the
// flag given to the shell invocation applies.
func quiet(c *cli.Context) bool {
	q, _ := c.App.Metadata[metaQuiet].(bool)
	return q || c.Bool("quiet")
}

func writer(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func errWriter(c *cli.Context) io.Writer {
	if c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}
