package command

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/walletlink-go/internal/cli/config"
	"github.com/yndnr/walletlink-go/internal/cli/output"
	"github.com/yndnr/walletlink-go/internal/infra/confloader"
	"github.com/yndnr/walletlink-go/internal/telemetry/logger"
)

const redacted = "***REDACTED***"

// ConfigCommand returns the config command group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the effective configuration",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "sources",
						Usage: "Show which layer (default, file, env, flag) set each key",
					},
				},
				Action: configShowAction,
			},
			{
				Name:   "path",
				Usage:  "Show the configuration file in use",
				Action: configPathAction,
			},
		},
	}
}

// configEntry is one effective configuration key.
type configEntry struct {
	Key    string            `json:"key" yaml:"key"`
	Value  string            `json:"value" yaml:"value"`
	Source confloader.Source `json:"source" yaml:"source"`
}

type configEntries []configEntry

// Table implements output.Tabular.
func (e configEntries) Table() *output.Table {
	t := &output.Table{Headers: []string{"KEY", "VALUE", "SOURCE"}}
	for _, entry := range e {
		t.AddRow(entry.Key, entry.Value, string(entry.Source))
	}
	return t
}

// configShowAction prints every effective key. Credentials are masked.
func configShowAction(c *cli.Context) error {
	_, loader := configFrom(c)
	if loader == nil {
		return errors.New("configuration not loaded")
	}

	var entries configEntries
	for _, key := range loader.Keys() {
		v := loader.GetString(key)
		if v != "" && logger.IsSensitiveKey(key) {
			v = redacted
		}
		entries = append(entries, configEntry{Key: key, Value: v, Source: loader.Source(key)})
	}

	if c.Bool("sources") {
		return render(c, entries)
	}
	values := make(map[string]string, len(entries))
	for _, e := range entries {
		values[e.Key] = e.Value
	}
	return render(c, values)
}

func configPathAction(c *cli.Context) error {
	_, loader := configFrom(c)
	path := ""
	if loader != nil {
		path = loader.FilePath()
	}
	if path == "" {
		fmt.Fprintf(writer(c), "no configuration file (default location: %s)\n", config.DefaultConfigPath())
		return nil
	}
	fmt.Fprintln(writer(c), path)
	return nil
}
