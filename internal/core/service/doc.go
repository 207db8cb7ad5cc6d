// Package service implements the wallet session state machine.
//
// The package contains:
//
//   - State: the shared session handle. Every mutation goes through one
//     mutex, restores the session invariants and notifies subscribers in
//     mutation order.
//   - ConnectionManager: connect/disconnect and the provider event loop.
//   - Authenticator: the challenge → sign → login flow, plus the
//     Confirm/Invalidate hooks for restored sessions.
//   - Bootstrapper: silent restoration of a persisted session at startup.
//
// Provider and backend I/O always runs outside the state lock. Results are
// committed only if the session has not been torn down or switched to
// another address in the meantime.
package service
