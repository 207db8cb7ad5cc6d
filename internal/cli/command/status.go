package command

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/walletlink-go/internal/cli/output"
	"github.com/yndnr/walletlink-go/internal/core/domain"
)

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Restore the stored session and show its state",
		Action: withEnv(statusAction),
	}
}

func statusAction(c *cli.Context, env *Env) error {
	outcome := env.Boot.Restore(c.Context)
	return render(c, output.NewStatusView(env.State.Snapshot()).WithRestore(outcome.String()))
}

// RequestCommand returns the request command.
func RequestCommand() *cli.Command {
	return &cli.Command{
		Name:      "request",
		Usage:     "Send a request to the backend with the session token",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "method",
				Aliases: []string{"X"},
				Usage:   "HTTP method",
				Value:   http.MethodGet,
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "JSON request body",
			},
		},
		Action: withEnv(requestAction),
	}
}

func requestAction(c *cli.Context, env *Env) error {
	path := c.Args().First()
	if path == "" {
		return domain.ErrInvalidArgument.WithDetails("request path required")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body any
	if data := c.String("data"); data != "" {
		var raw json.RawMessage
		if err := json.Unmarshal([]byte(data), &raw); err != nil {
			return domain.ErrInvalidArgument.WithDetails("--data is not valid JSON").WithCause(err)
		}
		body = raw
	}

	env.Boot.Restore(c.Context)

	var out any
	method := strings.ToUpper(c.String("method"))
	if err := env.Backend.Do(c.Context, method, path, body, &out); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if out == nil {
		return nil
	}
	return render(c, out)
}
