package service

import (
	"context"
	"errors"
	"time"

	"github.com/yndnr/walletlink-go/internal/core/domain"
	"github.com/yndnr/walletlink-go/internal/provider"
	"github.com/yndnr/walletlink-go/internal/storage"
	"github.com/yndnr/walletlink-go/internal/telemetry/logger"
	"github.com/yndnr/walletlink-go/internal/telemetry/metric"
)

// Logouter ends a backend session. Used for best-effort logout on teardown.
type Logouter interface {
	Logout(ctx context.Context) error
}

// ConnectionConfig holds configuration for ConnectionManager.
type ConnectionConfig struct {
	// Timeout bounds one connect attempt (default: 30s).
	Timeout time.Duration

	// LogoutTimeout bounds the best-effort logout on teardown (default: 5s).
	LogoutTimeout time.Duration

	// EventBuffer is the capacity of the provider event channel (default: 16).
	EventBuffer int
}

// DefaultConnectionConfig returns default configuration.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Timeout:       30 * time.Second,
		LogoutTimeout: 5 * time.Second,
		EventBuffer:   16,
	}
}

// ConnectionManager owns the connection half of the session: address,
// chain id and the Idle → Connecting → Connected → Disconnected machine.
type ConnectionManager struct {
	state    *State
	provider provider.Provider
	store    storage.Store
	logout   Logouter
	config   *ConnectionConfig
	logger   logger.Logger
	metrics  *metric.Registry
}

// NewConnectionManager creates a connection manager. prov may be nil when
// no wallet provider is available; logout may be nil.
func NewConnectionManager(state *State, prov provider.Provider, store storage.Store, logout Logouter, config *ConnectionConfig, opts ...Option) *ConnectionManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	def := DefaultConnectionConfig()
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.LogoutTimeout <= 0 {
		config.LogoutTimeout = def.LogoutTimeout
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = def.EventBuffer
	}

	o := buildOptions("connection", opts)
	return &ConnectionManager{
		state:    state,
		provider: prov,
		store:    store,
		logout:   logout,
		config:   config,
		logger:   o.logger,
		metrics:  o.metrics,
	}
}

// HasProvider reports whether a wallet provider is available.
func (m *ConnectionManager) HasProvider() bool {
	return m.provider != nil
}

// ============================================================================
// Connect
// ============================================================================

// Connect requests account access from the provider and records the
// primary account and chain id.
//
// Failures return the session to Idle. A non-silent connect clears the
// previous error when it starts and records its own failure in the
// session; a silent connect only returns it. A second call while a connect
// is in flight fails with ErrAlreadyConnecting and changes nothing.
func (m *ConnectionManager) Connect(ctx context.Context, silent bool) error {
	attemptID := domain.NewAttemptID()
	ctx = logger.WithAttemptID(ctx, attemptID)
	log := m.logger.With("attempt_id", attemptID, "silent", silent)
	start := time.Now()

	if m.provider == nil {
		err := domain.ErrProviderUnavailable.WithDetails("no wallet provider")
		if !silent {
			m.recordError(err)
		}
		log.Debug("connect skipped, no provider")
		m.metrics.ObserveConnect(silent, metric.ResultFailure, 0)
		return err
	}

	var epoch uint64
	err := m.state.mutate(func(s *domain.Session) error {
		if s.IsConnecting {
			return domain.ErrAlreadyConnecting
		}
		s.IsConnecting = true
		s.Phase = domain.PhaseConnecting
		if !silent {
			s.Err = nil
		}
		m.state.pendingAddr, m.state.pendingChain = "", 0
		epoch = m.state.epoch
		return nil
	})
	if err != nil {
		log.Debug("connect rejected", "error", err)
		return err
	}

	address, chainID, err := m.request(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = domain.ErrTimeout.WithDetails("connect exceeded " + m.config.Timeout.String()).WithCause(err)
	}

	var committed domain.Session
	commitErr := m.state.mutate(func(s *domain.Session) error {
		if m.state.epoch != epoch {
			// Torn down while connecting; the teardown owns the state.
			return domain.ErrDisconnected
		}
		s.IsConnecting = false
		if err != nil {
			if s.IsConnected {
				s.Phase = domain.PhaseConnected
			} else {
				s.Phase = domain.PhaseIdle
			}
			if !silent {
				s.Err = err
			}
			return nil
		}

		if m.state.pendingAddr != "" {
			address = m.state.pendingAddr
		}
		if m.state.pendingChain != 0 {
			chainID = m.state.pendingChain
		}
		m.state.pendingAddr, m.state.pendingChain = "", 0

		if !domain.SameAddress(s.Address, address) {
			s.Token = ""
			s.IsAuthenticated = false
		}
		s.Address = address
		s.ChainID = chainID
		s.IsConnected = true
		s.Phase = domain.PhaseConnected
		committed = *s
		return nil
	})

	elapsed := time.Since(start)
	if commitErr != nil {
		log.Info("connect aborted by teardown")
		m.metrics.ObserveConnect(silent, metric.ResultAborted, elapsed)
		return commitErr
	}
	if err != nil {
		if silent {
			log.Debug("silent connect failed", "error", err)
		} else {
			log.Warn("connect failed", "error", err)
		}
		m.metrics.ObserveConnect(silent, resultOf(err), elapsed)
		return err
	}

	if perr := m.state.persistConnection(ctx, m.store); perr != nil {
		log.Warn("failed to persist wallet address", "error", perr)
	}
	log.Info("wallet connected", "address", committed.Address, "chain_id", committed.ChainID, "elapsed", elapsed)
	m.metrics.ObserveConnect(silent, metric.ResultSuccess, elapsed)
	return nil
}

// request performs the provider round-trips of a connect under the
// configured timeout. It returns when the timeout fires even if the
// provider does not honour ctx; a late answer is discarded.
func (m *ConnectionManager) request(ctx context.Context) (string, uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	type result struct {
		address string
		chainID uint64
		err     error
	}
	done := make(chan result, 1)
	go func() {
		address, chainID, err := m.roundTrip(ctx)
		done <- result{address, chainID, err}
	}()

	select {
	case r := <-done:
		return r.address, r.chainID, r.err
	case <-ctx.Done():
		return "", 0, ctx.Err()
	}
}

func (m *ConnectionManager) roundTrip(ctx context.Context) (string, uint64, error) {
	accounts, err := m.provider.RequestAccounts(ctx)
	if err != nil {
		return "", 0, err
	}
	if len(accounts) == 0 {
		return "", 0, domain.ErrUserRejected.WithDetails("no accounts")
	}
	address, err := domain.NormalizeAddress(accounts[0])
	if err != nil {
		return "", 0, domain.ErrProviderUnavailable.WithDetails("provider returned an invalid account").WithCause(err)
	}

	chainID, err := m.provider.ChainID(ctx)
	if err != nil {
		return "", 0, err
	}
	return address, chainID, nil
}

func (m *ConnectionManager) recordError(err error) {
	_ = m.state.mutate(func(s *domain.Session) error {
		s.Err = err
		return nil
	})
}

// ============================================================================
// Disconnect
// ============================================================================

// Disconnect ends the backend session (best effort), clears every session
// field and removes both persisted keys. Only a storage failure is
// returned.
func (m *ConnectionManager) Disconnect(ctx context.Context) error {
	return m.teardown(ctx, "disconnect")
}

func (m *ConnectionManager) teardown(ctx context.Context, reason string) error {
	log := m.logger.With("reason", reason)

	// Logout first so the request still carries the bearer token.
	if m.logout != nil && m.state.Token() != "" {
		lctx, cancel := context.WithTimeout(ctx, m.config.LogoutTimeout)
		err := m.logout.Logout(lctx)
		cancel()
		if err != nil {
			log.Warn("backend logout failed", "error", err)
			m.metrics.ObserveLogout(metric.ResultFailure)
		} else {
			m.metrics.ObserveLogout(metric.ResultSuccess)
		}
	}

	_ = m.state.mutate(func(s *domain.Session) error {
		m.state.epoch++
		m.state.pendingAddr, m.state.pendingChain = "", 0
		s.Reset()
		return nil
	})

	if err := m.state.clearPersisted(ctx, m.store); err != nil {
		log.Error("failed to clear persisted session", "error", err)
		return err
	}
	log.Info("wallet disconnected")
	return nil
}

// ============================================================================
// Provider events
// ============================================================================

// Run subscribes to the provider and applies its change events, in
// arrival order, until ctx is done.
func (m *ConnectionManager) Run(ctx context.Context) error {
	if m.provider == nil {
		return domain.ErrProviderUnavailable.WithDetails("no wallet provider")
	}

	events := make(chan domain.ChangeEvent, m.config.EventBuffer)
	done := make(chan struct{})
	enqueue := func(ev domain.ChangeEvent) {
		select {
		case events <- ev:
		case <-done:
		}
	}

	unsubscribe := m.provider.Subscribe(
		func(accounts []string) { enqueue(domain.AccountsChanged(accounts...)) },
		func(chainIDHex string) { enqueue(domain.ChainChanged(chainIDHex)) },
	)
	defer func() {
		// Release blocked callbacks before waiting on the provider.
		close(done)
		unsubscribe()
	}()

	m.logger.Debug("event loop started")
	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("event loop stopped")
			return nil
		case ev := <-events:
			m.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent applies one provider change event.
func (m *ConnectionManager) HandleEvent(ctx context.Context, ev domain.ChangeEvent) {
	m.metrics.ObserveEvent(ev.Kind.String())

	switch ev.Kind {
	case domain.EventAccountsChanged:
		m.handleAccounts(ctx, ev.Accounts)
	case domain.EventChainChanged:
		m.handleChain(ev.ChainIDHex)
	default:
		m.logger.Warn("unknown provider event", "kind", int(ev.Kind))
	}
}

func (m *ConnectionManager) handleAccounts(ctx context.Context, accounts []string) {
	if len(accounts) == 0 {
		if err := m.teardown(ctx, "accounts cleared"); err != nil {
			m.logger.Warn("teardown after accounts cleared failed", "error", err)
		}
		return
	}

	address, err := domain.NormalizeAddress(accounts[0])
	if err != nil {
		m.logger.Warn("ignoring invalid account from provider", "account", accounts[0], "error", err)
		return
	}

	var switched bool
	_ = m.state.mutate(func(s *domain.Session) error {
		if s.IsConnecting {
			m.state.pendingAddr = address
		}
		if !s.IsConnected || domain.SameAddress(s.Address, address) {
			return errUnchanged
		}
		s.Address = address
		s.Token = ""
		s.IsAuthenticated = false
		switched = true
		return nil
	})
	if !switched {
		return
	}

	m.logger.Info("wallet account changed, authentication dropped", "address", address)
	if err := m.state.persistAddress(ctx, m.store); err != nil {
		m.logger.Warn("failed to persist wallet address", "error", err)
	}
}

func (m *ConnectionManager) handleChain(chainIDHex string) {
	chainID, err := domain.ParseChainID(chainIDHex)
	if err != nil {
		m.logger.Warn("ignoring invalid chain id from provider", "chain_id", chainIDHex, "error", err)
		return
	}

	_ = m.state.mutate(func(s *domain.Session) error {
		if s.IsConnecting {
			m.state.pendingChain = chainID
		}
		if !s.IsConnected || s.ChainID == chainID {
			return errUnchanged
		}
		s.ChainID = chainID
		return nil
	})
}

// resultOf maps a flow error to a metric result label.
func resultOf(err error) string {
	switch {
	case err == nil:
		return metric.ResultSuccess
	case errors.Is(err, domain.ErrUserRejected):
		return metric.ResultRejected
	case errors.Is(err, domain.ErrDisconnected), errors.Is(err, context.Canceled):
		return metric.ResultAborted
	default:
		return metric.ResultFailure
	}
}
