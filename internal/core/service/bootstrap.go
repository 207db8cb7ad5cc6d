package service

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/yndnr/walletlink-go/internal/core/domain"
	"github.com/yndnr/walletlink-go/internal/storage"
	"github.com/yndnr/walletlink-go/internal/telemetry/logger"
	"github.com/yndnr/walletlink-go/internal/telemetry/metric"
)

// RestoreOutcome describes what Restore did.
type RestoreOutcome int

const (
	// RestoreSkipped means nothing was restored and nothing was touched.
	RestoreSkipped RestoreOutcome = iota
	// RestoreRestored means the session is connected and provisionally
	// authenticated.
	RestoreRestored
	// RestoreConnectedOnly means the provider connected with an account
	// other than the persisted one or the one the token was issued for;
	// the stale token was dropped.
	RestoreConnectedOnly
	// RestoreFailed means the silent connect failed and the persisted
	// session was cleared.
	RestoreFailed
)

// String returns the outcome name.
func (o RestoreOutcome) String() string {
	switch o {
	case RestoreSkipped:
		return "skipped"
	case RestoreRestored:
		return "restored"
	case RestoreConnectedOnly:
		return "connected_only"
	case RestoreFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Bootstrapper restores a persisted session at startup.
type Bootstrapper struct {
	state   *State
	conn    *ConnectionManager
	store   storage.Store
	logger  logger.Logger
	metrics *metric.Registry
	ran     atomic.Bool
}

// NewBootstrapper creates a bootstrapper.
func NewBootstrapper(state *State, conn *ConnectionManager, store storage.Store, opts ...Option) *Bootstrapper {
	o := buildOptions("bootstrap", opts)
	return &Bootstrapper{
		state:   state,
		conn:    conn,
		store:   store,
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// Restore silently re-establishes the persisted session. It runs once;
// later calls return RestoreSkipped.
//
// The restored session is authenticated without a new challenge and is
// marked Provisional until the backend accepts its token. Restoration
// failures are logged and never returned as errors.
func (b *Bootstrapper) Restore(ctx context.Context) RestoreOutcome {
	if !b.ran.CompareAndSwap(false, true) {
		return RestoreSkipped
	}
	if !b.conn.HasProvider() {
		b.logger.Debug("no wallet provider, skipping restore")
		return RestoreSkipped
	}

	persisted, err := storage.Load(ctx, b.store)
	if err != nil {
		b.logger.Warn("failed to read persisted session", "error", err)
		return RestoreSkipped
	}
	if !persisted.Complete() {
		b.logger.Debug("no persisted session to restore")
		return RestoreSkipped
	}

	log := b.logger.With("address", persisted.Address)
	if err := b.conn.Connect(ctx, true); err != nil {
		if errors.Is(err, domain.ErrAlreadyConnecting) {
			log.Debug("connect already in flight, skipping restore")
			return RestoreSkipped
		}
		log.Info("silent reconnect failed, clearing persisted session", "error", err)
		if cerr := b.state.clearPersisted(ctx, b.store); cerr != nil {
			log.Warn("failed to clear persisted session", "error", cerr)
		}
		b.metrics.ObserveRestore(metric.ResultFailure)
		return RestoreFailed
	}

	var restored bool
	_ = b.state.mutate(func(s *domain.Session) error {
		if !s.IsConnected || !domain.SameAddress(s.Address, persisted.Address) ||
			!domain.SameAddress(s.Address, persisted.TokenOwner()) {
			return errUnchanged
		}
		s.Token = persisted.Token
		s.IsAuthenticated = true
		s.Provisional = true
		restored = true
		return nil
	})

	if !restored {
		log.Info("persisted token does not belong to the connected account, authentication not restored",
			"connected", b.state.Snapshot().Address)
		if err := b.state.removeToken(ctx, b.store); err != nil {
			log.Warn("failed to remove stale token", "error", err)
		}
		b.metrics.ObserveRestore(metric.ResultRejected)
		return RestoreConnectedOnly
	}

	log.Info("session restored", "provisional", true)
	b.metrics.ObserveRestore(metric.ResultSuccess)
	return RestoreRestored
}
