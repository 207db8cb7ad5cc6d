// Package domain defines the core domain models for walletlink.
//
// Domain models are pure value objects without any IO dependencies or
// framework coupling. This package contains:
//
//   - Session: client-local connection and authentication record
//   - PersistedSession: the durable subset kept in the session store
//   - ChangeEvent: provider-emitted account and chain notifications
//   - Errors: domain error taxonomy
//
// Address and chain id parsing live here so every component agrees on
// equality and representation.
package domain
