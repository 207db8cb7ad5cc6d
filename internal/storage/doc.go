// Package storage provides the durable session store for walletlink.
//
// The store keeps the PersistedSession keys (wallet_address, auth_token)
// across process restarts. Backends:
//
//   - memory: process-local map, for tests and ephemeral sessions
//   - badger: embedded on-disk KV store (default for the CLI)
//   - redis: shared store for several clients of the same user
//
// Sealed wraps any backend and encrypts values at rest with
// XChaCha20-Poly1305 when a key is configured.
package storage
