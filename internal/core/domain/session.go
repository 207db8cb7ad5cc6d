// Package domain defines the core domain models for walletlink.
package domain

import (
	"crypto/rand"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Persisted session keys. KeyAuthOwner records the address the stored
// token was issued for; it is written and removed with KeyAuthToken.
const (
	KeyAuthToken     = "auth_token"
	KeyAuthOwner     = "auth_owner"
	KeyWalletAddress = "wallet_address"

	// AttemptIDPrefix is the prefix for connect/authenticate attempt IDs.
	AttemptIDPrefix = "wlat-"
)

// Phase is the connection state machine position.
type Phase int

const (
	// PhaseIdle means no provider session exists and none was ever established.
	PhaseIdle Phase = iota
	// PhaseConnecting means a connect operation is in flight.
	PhaseConnecting
	// PhaseConnected means a provider session exists.
	PhaseConnected
	// PhaseDisconnected means a provider session existed and was torn down.
	// It behaves exactly like PhaseIdle.
	PhaseDisconnected
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session is the client-local record of connection and authentication
// state for one address.
//
// Invariants (enforced by Normalize):
//   - IsAuthenticated implies IsConnected and a non-empty Token.
//   - An empty Address implies IsConnected and IsAuthenticated are false.
type Session struct {
	// Address is the connected account in EIP-55 checksum form.
	Address string `json:"address,omitempty" yaml:"address,omitempty"`

	// ChainID is the provider network id. Zero means unknown.
	ChainID uint64 `json:"chain_id,omitempty" yaml:"chain_id,omitempty"`

	// Token is the bearer credential issued by the last successful login.
	Token string `json:"-" yaml:"-"`

	IsConnected     bool `json:"is_connected" yaml:"is_connected"`
	IsAuthenticated bool `json:"is_authenticated" yaml:"is_authenticated"`
	IsConnecting    bool `json:"is_connecting" yaml:"is_connecting"`

	// Provisional marks a session restored from storage whose token has
	// not yet been accepted by the backend.
	Provisional bool `json:"provisional,omitempty" yaml:"provisional,omitempty"`

	Phase Phase `json:"-" yaml:"-"`

	// Err is the last user-visible failure. Cleared explicitly.
	Err error `json:"-" yaml:"-"`
}

// Normalize restores the session invariants after a mutation.
func (s *Session) Normalize() {
	if s.Address == "" {
		s.IsConnected = false
		s.IsAuthenticated = false
	}
	if !s.IsConnected || s.Token == "" {
		s.IsAuthenticated = false
	}
	if !s.IsAuthenticated {
		s.Provisional = false
	}
}

// Valid reports whether the session satisfies its invariants.
func (s Session) Valid() bool {
	if s.IsAuthenticated && (!s.IsConnected || s.Token == "") {
		return false
	}
	if s.Address == "" && (s.IsConnected || s.IsAuthenticated) {
		return false
	}
	return true
}

// Reset tears the session down to the empty state.
// The phase becomes PhaseDisconnected.
func (s *Session) Reset() {
	*s = Session{Phase: PhaseDisconnected}
}

// ErrorString returns the last failure message, or "".
func (s Session) ErrorString() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// PersistedSession is the durable subset of a Session.
type PersistedSession struct {
	Address string
	Token   string

	// Owner is the address Token was issued for.
	Owner string
}

// TokenOwner returns the address the token belongs to. Sessions written
// before the owner was recorded fall back to Address.
func (p PersistedSession) TokenOwner() string {
	if p.Owner != "" {
		return p.Owner
	}
	return p.Address
}

// Complete reports whether both keys needed for silent restoration are present.
func (p PersistedSession) Complete() bool {
	return p.Address != "" && p.Token != ""
}

// NewAttemptID returns a new connect/authenticate attempt identifier.
// Format: wlat-{ulid_lowercase}.
func NewAttemptID() string {
	id := ulid.MustNew(ulid.Now(), rand.Reader)
	return AttemptIDPrefix + strings.ToLower(id.String())
}
