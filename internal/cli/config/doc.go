// Package config defines the walletlink CLI configuration.
//
// Configuration is read from ~/.walletlink/config.yaml (or --config),
// WALLETLINK_* environment variables and command-line flags, in increasing
// priority, on top of Defaults.
package config
