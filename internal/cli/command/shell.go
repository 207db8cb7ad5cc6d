package command

import (
	"context"
	"errors"
	"os"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/walletlink-go/internal/cli/repl"
)

const metaShell = "shell"

// errInsideShell rejects commands that would start a second event loop.
var errInsideShell = errors.New("not available inside a shell")

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Run commands against one live session",
		Description: "Restores the session once and follows wallet changes in the background.\n" +
			"Global flags are taken from the shell invocation.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "history-file",
				Usage: "Command history file (default: ~/.walletlink/history)",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not read or write command history",
			},
		},
		Action: withEnv(shellAction),
	}
}

func shellAction(c *cli.Context, env *Env) error {
	if inShell(c) {
		return errInsideShell
	}
	c.App.Metadata[metaShell] = true
	defer delete(c.App.Metadata, metaShell)

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	log := env.Log.With("component", "shell")

	outcome := env.Boot.Restore(ctx)
	log.Debug("session restore finished", "outcome", outcome.String())

	runDone := make(chan struct{})
	if env.Conn.HasProvider() {
		go func() {
			defer close(runDone)
			if err := env.Conn.Run(ctx); err != nil {
				log.Warn("wallet event loop stopped", "error", err)
			}
		}()
	} else {
		close(runDone)
	}
	defer func() {
		cancel()
		<-runDone
	}()

	historyFile := c.String("history-file")
	if historyFile == "" {
		historyFile = repl.DefaultHistoryFile()
	}
	if c.Bool("no-history") {
		historyFile = ""
	}

	app := c.App
	input := app.Reader
	if input == nil {
		input = os.Stdin
	}
	r := repl.New(repl.Config{
		Input:  input,
		Output: writer(c),
		Exec: func(ctx context.Context, args []string) error {
			return app.RunContext(ctx, append([]string{app.Name}, args...))
		},
		Commands:    shellCommands(app),
		HistoryFile: historyFile,
	})
	return r.Run(ctx)
}

// shellCommands lists the commands reachable from the shell, with
// subcommands spelled out.
func shellCommands(app *cli.App) []string {
	var names []string
	for _, cmd := range app.Commands {
		if cmd.Hidden {
			continue
		}
		names = append(names, cmd.Name)
		for _, sub := range cmd.Subcommands {
			names = append(names, cmd.Name+" "+sub.Name)
		}
	}
	sort.Strings(names)
	return names
}

// inShell reports whether the invocation runs inside a shell.
func inShell(c *cli.Context) bool {
	_, ok := c.App.Metadata[metaShell]
	return ok
}
