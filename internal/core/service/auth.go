package service

import (
	"context"
	"time"

	"github.com/yndnr/walletlink-go/internal/backend"
	"github.com/yndnr/walletlink-go/internal/core/domain"
	"github.com/yndnr/walletlink-go/internal/provider"
	"github.com/yndnr/walletlink-go/internal/storage"
	"github.com/yndnr/walletlink-go/internal/telemetry/logger"
	"github.com/yndnr/walletlink-go/internal/telemetry/metric"
)

// Backend is the challenge/login capability of the backend.
type Backend interface {
	// Challenge returns a nonce for address to sign.
	Challenge(ctx context.Context, address string) (string, error)

	// Login redeems a signed challenge for a bearer token.
	Login(ctx context.Context, address, signature string) (backend.LoginResult, error)
}

// Authenticator owns the authentication half of the session.
type Authenticator struct {
	state    *State
	provider provider.Provider
	backend  Backend
	store    storage.Store
	logger   logger.Logger
	metrics  *metric.Registry
}

// NewAuthenticator creates an authenticator. prov may be nil.
func NewAuthenticator(state *State, prov provider.Provider, be Backend, store storage.Store, opts ...Option) *Authenticator {
	o := buildOptions("auth", opts)
	return &Authenticator{
		state:    state,
		provider: prov,
		backend:  be,
		store:    store,
		logger:   o.logger,
		metrics:  o.metrics,
	}
}

// Authenticate proves ownership of the connected address: it requests a
// challenge, has the provider sign it and redeems the signature for a
// token.
//
// A failure at any step leaves the session exactly as it was and is only
// returned. If the connected address changes or the session is torn down
// while the flow is in flight, the flow fails with ErrAuthenticationFailed
// and nothing is committed.
func (a *Authenticator) Authenticate(ctx context.Context) error {
	attemptID := domain.NewAttemptID()
	ctx = logger.WithAttemptID(ctx, attemptID)
	log := a.logger.With("attempt_id", attemptID)
	start := time.Now()

	if a.provider == nil {
		return domain.ErrNotConnected.WithDetails("no wallet provider")
	}

	var (
		address string
		epoch   uint64
	)
	err := a.state.mutate(func(s *domain.Session) error {
		if a.state.authenticating {
			return domain.ErrAlreadyAuthenticating
		}
		if !s.IsConnected || s.Address == "" {
			return domain.ErrNotConnected
		}
		a.state.authenticating = true
		address, epoch = s.Address, a.state.epoch
		return errUnchanged
	})
	if err != nil {
		log.Debug("authenticate rejected", "error", err)
		return err
	}
	defer func() {
		a.state.mu.Lock()
		a.state.authenticating = false
		a.state.mu.Unlock()
	}()

	log = log.With("address", address)
	token, err := a.run(ctx, address, epoch)
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("authentication failed", "error", err, "elapsed", elapsed)
		a.metrics.ObserveAuth(resultOf(err), elapsed)
		return err
	}

	err = a.state.mutate(func(s *domain.Session) error {
		if !a.boundTo(s, address, epoch) {
			return domain.ErrAuthenticationFailed.WithDetails("address changed mid-flow")
		}
		s.Token = token
		s.IsAuthenticated = true
		s.Provisional = false
		return nil
	})
	if err != nil {
		log.Warn("authentication discarded", "error", err)
		a.metrics.ObserveAuth(metric.ResultAborted, elapsed)
		return err
	}

	if perr := a.state.persistSession(ctx, a.store); perr != nil {
		log.Warn("failed to persist session", "error", perr)
	}
	log.Info("wallet authenticated", "elapsed", elapsed)
	a.metrics.ObserveAuth(metric.ResultSuccess, elapsed)
	return nil
}

// run performs challenge → sign → login for address.
func (a *Authenticator) run(ctx context.Context, address string, epoch uint64) (string, error) {
	challenge, err := a.backend.Challenge(ctx, address)
	if err != nil {
		return "", domain.ErrAuthenticationFailed.WithDetails("challenge request failed").WithCause(err)
	}

	signature, err := a.provider.SignMessage(ctx, address, challenge)
	if err != nil {
		return "", domain.ErrAuthenticationFailed.WithDetails("challenge signing failed").WithCause(err)
	}

	// The backend issued the challenge for address; a signature from any
	// other account must not be submitted.
	if !a.stillBound(address, epoch) {
		return "", domain.ErrAuthenticationFailed.WithDetails("address changed mid-flow")
	}

	res, err := a.backend.Login(ctx, address, signature)
	if err != nil {
		return "", domain.ErrAuthenticationFailed.WithDetails("login failed").WithCause(err)
	}
	return res.Token, nil
}

func (a *Authenticator) stillBound(address string, epoch uint64) bool {
	a.state.mu.Lock()
	defer a.state.mu.Unlock()
	return a.boundTo(&a.state.session, address, epoch)
}

// boundTo reports whether s is still the connected session the flow
// started from. Caller holds the state lock.
func (a *Authenticator) boundTo(s *domain.Session, address string, epoch uint64) bool {
	return a.state.epoch == epoch && s.IsConnected && domain.SameAddress(s.Address, address)
}

// Invalidate reverts an authenticated session after the backend rejected
// its token and removes the persisted token.
func (a *Authenticator) Invalidate(ctx context.Context) error {
	var revoked bool
	_ = a.state.mutate(func(s *domain.Session) error {
		if !s.IsAuthenticated {
			return errUnchanged
		}
		s.Token = ""
		s.IsAuthenticated = false
		revoked = true
		return nil
	})
	if !revoked {
		return nil
	}

	a.logger.Info("backend rejected session token, authentication reverted")
	return a.state.removeToken(ctx, a.store)
}

// Confirm marks a restored session as accepted by the backend.
func (a *Authenticator) Confirm() {
	_ = a.state.mutate(func(s *domain.Session) error {
		if !s.Provisional {
			return errUnchanged
		}
		s.Provisional = false
		return nil
	})
}
