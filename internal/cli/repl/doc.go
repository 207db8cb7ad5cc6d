// Package repl provides the interactive shell of the walletlink CLI.
//
//   - repl.go: read loop, line splitting and dispatch
//   - completer.go: command name suggestions
//   - history.go: command history persistence
package repl
