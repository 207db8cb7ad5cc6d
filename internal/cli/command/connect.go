package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/walletlink-go/internal/cli/output"
	"github.com/yndnr/walletlink-go/internal/core/service"
)

// ConnectCommand returns the connect command.
func ConnectCommand() *cli.Command {
	return &cli.Command{
		Name:  "connect",
		Usage: "Request account access from the wallet",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "login",
				Usage: "Authenticate with the backend after connecting",
			},
		},
		Action: withEnv(connectAction),
	}
}

func connectAction(c *cli.Context, env *Env) error {
	ctx := c.Context
	outcome := env.Boot.Restore(ctx)

	sp := startSpinner(c, "waiting for wallet approval")
	var err error
	if outcome != service.RestoreRestored && outcome != service.RestoreConnectedOnly {
		err = env.Conn.Connect(ctx, false)
	}
	if err == nil && c.Bool("login") && !env.State.Snapshot().IsAuthenticated {
		err = env.Auth.Authenticate(ctx)
	}
	if err != nil {
		sp.Fail("connect failed")
		return fmt.Errorf("connect: %w", err)
	}
	sp.Stop()
	return render(c, output.NewStatusView(env.State.Snapshot()).WithRestore(outcome.String()))
}

// LoginCommand returns the login command.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign a backend challenge to authenticate the connected wallet",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Authenticate again even if a stored session was restored",
			},
		},
		Action: withEnv(loginAction),
	}
}

func loginAction(c *cli.Context, env *Env) error {
	ctx := c.Context
	outcome := env.Boot.Restore(ctx)

	s := env.State.Snapshot()
	if s.IsAuthenticated && !c.Bool("force") {
		return render(c, output.NewStatusView(s).WithRestore(outcome.String()))
	}

	sp := startSpinner(c, "waiting for wallet signature")
	var err error
	if !s.IsConnected {
		err = env.Conn.Connect(ctx, false)
	}
	if err == nil {
		err = env.Auth.Authenticate(ctx)
	}
	if err != nil {
		sp.Fail("login failed")
		return fmt.Errorf("login: %w", err)
	}
	sp.Stop()
	return render(c, output.NewStatusView(env.State.Snapshot()).WithRestore(outcome.String()))
}

// LogoutCommand returns the logout command.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "End the backend session and forget the stored wallet",
		Action: withEnv(logoutAction),
	}
}

func logoutAction(c *cli.Context, env *Env) error {
	env.Boot.Restore(c.Context)
	if err := env.Conn.Disconnect(c.Context); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return render(c, output.NewStatusView(env.State.Snapshot()))
}

// startSpinner shows progress on stderr for interactive table output.
func startSpinner(c *cli.Context, message string) *output.Spinner {
	sp := output.NewSpinner(errWriter(c), message)
	if _, format := formatterFrom(c); format == output.FormatTable && !quiet(c) {
		sp.Start()
	}
	return sp
}
