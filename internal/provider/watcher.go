package provider

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/walletlink-go/internal/core/domain"
	"github.com/yndnr/walletlink-go/internal/telemetry/logger"
)

// Watcher defaults.
const (
	DefaultPollInterval    = 2 * time.Second
	DefaultDisconnectAfter = 3
)

// StateSource reports the provider's current accounts and network
// without prompting the user.
type StateSource interface {
	Accounts(ctx context.Context) ([]string, error)
	ChainID(ctx context.Context) (uint64, error)
}

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// PollInterval is the minimum spacing between polls.
	PollInterval time.Duration

	// DisconnectAfter is the number of consecutive failed polls after
	// which the provider is reported gone with an empty account list.
	DisconnectAfter int
}

// Watcher polls a StateSource and emits change notifications when the
// account list or chain id drifts. The first successful poll establishes
// the baseline and emits nothing.
type Watcher struct {
	src     StateSource
	out     *Broadcaster
	limiter *rate.Limiter
	cfg     WatcherConfig
	logger  logger.Logger

	accounts    []string
	chainID     uint64
	haveBase    bool
	failures    int
	reportedOff bool
}

// NewWatcher creates a watcher emitting into out.
func NewWatcher(src StateSource, out *Broadcaster, cfg WatcherConfig, log logger.Logger) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.DisconnectAfter <= 0 {
		cfg.DisconnectAfter = DefaultDisconnectAfter
	}
	return &Watcher{
		src:     src,
		out:     out,
		limiter: rate.NewLimiter(rate.Every(cfg.PollInterval), 1),
		cfg:     cfg,
		logger:  logger.OrDefault(log).With("component", "provider-watcher"),
	}
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Debug("provider watcher started", "interval", w.cfg.PollInterval)
	defer w.logger.Debug("provider watcher stopped")

	for {
		if err := w.limiter.Wait(ctx); err != nil {
			return
		}
		w.Poll(ctx)
	}
}

// Poll performs one poll cycle.
func (w *Watcher) Poll(ctx context.Context) {
	accounts, err := w.src.Accounts(ctx)
	if err == nil {
		var chainID uint64
		chainID, err = w.src.ChainID(ctx)
		if err == nil {
			w.observe(accounts, chainID)
			return
		}
	}
	if ctx.Err() != nil {
		return
	}

	w.failures++
	w.logger.Debug("provider poll failed", "failures", w.failures, "error", err)
	if w.failures >= w.cfg.DisconnectAfter && !w.reportedOff {
		w.logger.Warn("provider unreachable, reporting disconnect", "failures", w.failures)
		w.reportedOff = true
		w.haveBase = false
		w.accounts = nil
		w.out.EmitAccounts(nil)
	}
}

func (w *Watcher) observe(accounts []string, chainID uint64) {
	w.failures = 0
	w.reportedOff = false

	if !w.haveBase {
		w.haveBase = true
		w.accounts = accounts
		w.chainID = chainID
		return
	}

	if !sameAccounts(w.accounts, accounts) {
		w.accounts = accounts
		w.out.EmitAccounts(accounts)
	}
	if chainID != w.chainID {
		w.chainID = chainID
		w.out.EmitChain(domain.FormatChainID(chainID))
	}
}

func sameAccounts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !domain.SameAddress(a[i], b[i]) {
			return false
		}
	}
	return true
}
