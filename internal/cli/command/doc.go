// Package command provides the walletlink CLI commands.
//
// It uses urfave/cli/v2 for command parsing:
//
//   - root.go: App, global flags, configuration and logger setup
//   - env.go: wiring of store, provider, backend and session services
//   - connect.go: connect, login, logout
//   - status.go: status and authenticated backend requests
//   - watch.go: long-running event loop with graceful shutdown
//   - shell.go: interactive shell over one live session
//   - config.go, version.go: configuration and build information
//
// Each command restores the persisted session first, so a sequence of
// invocations behaves like one long-lived client.
package command
