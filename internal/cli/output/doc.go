// Package output renders walletlink CLI results.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: key/value and tabular rendering
//   - json.go, yaml.go: machine-readable output for scripting
//   - status.go: the session status view shared by every command
//   - spinner.go: feedback while the wallet waits for user approval
package output
