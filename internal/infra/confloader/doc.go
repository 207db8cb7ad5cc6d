// Package confloader loads walletlink configuration with koanf.
//
// Layers, lowest to highest:
//
//  1. Defaults (WithDefaults)
//  2. Configuration file, YAML (WithConfigFile, WithOptionalConfigFile)
//  3. Environment variables (WALLETLINK_*)
//  4. Overrides, normally command-line flags (WithOverrides)
//
// Each layer is loaded on its own and merged over the ones below, so
// Source can report where an effective value came from.
//
// Environment variable names are matched against keys already known from
// defaults or the file, so WALLETLINK_STORAGE_KEY_PREFIX resolves to
// storage.key_prefix rather than storage.key.prefix.
//
// Watcher reports changes to watched configuration files via fsnotify.
package confloader
