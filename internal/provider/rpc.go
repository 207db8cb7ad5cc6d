package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/yndnr/walletlink-go/internal/core/domain"
	"github.com/yndnr/walletlink-go/internal/telemetry/logger"
)

// RPCConfig configures an RPCProvider.
type RPCConfig struct {
	// URL is the signer endpoint (http, https, ws, wss or an IPC path).
	URL string `koanf:"url"`

	Watcher WatcherConfig `koanf:"-"`
}

// RPCProvider talks to an external signer over JSON-RPC. Change
// notifications come from a Watcher that runs while at least one
// subscriber is registered.
type RPCProvider struct {
	client *rpc.Client
	subs   *Broadcaster
	logger logger.Logger
	cfg    RPCConfig

	mu         sync.Mutex
	stopWatch  context.CancelFunc
	watchDone  chan struct{}
	ownsClient bool
}

// Dial connects to the signer at cfg.URL.
func Dial(ctx context.Context, cfg RPCConfig, log logger.Logger) (*RPCProvider, error) {
	if cfg.URL == "" {
		return nil, domain.ErrProviderUnavailable.WithDetails("no provider url configured")
	}
	client, err := rpc.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, domain.ErrProviderUnavailable.WithDetails(fmt.Sprintf("dial %s", cfg.URL)).WithCause(err)
	}
	p := NewRPCProvider(client, cfg, log)
	p.ownsClient = true
	return p, nil
}

// NewRPCProvider wraps an existing client.
func NewRPCProvider(client *rpc.Client, cfg RPCConfig, log logger.Logger) *RPCProvider {
	p := &RPCProvider{
		client: client,
		cfg:    cfg,
		logger: logger.OrDefault(log).With("component", "provider"),
	}
	p.subs = NewBroadcaster()
	p.subs.onFirst = p.startWatch
	p.subs.onLast = p.stopWatching
	return p
}

// RequestAccounts calls eth_requestAccounts.
func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []common.Address
	if err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, mapError(err, domain.ErrProviderUnavailable)
	}
	if len(accounts) == 0 {
		return nil, domain.ErrUserRejected.WithDetails("provider returned no accounts")
	}
	return hexAddresses(accounts), nil
}

// Accounts calls eth_accounts. It never prompts the user.
func (p *RPCProvider) Accounts(ctx context.Context) ([]string, error) {
	var accounts []common.Address
	if err := p.client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, mapError(err, domain.ErrProviderUnavailable)
	}
	return hexAddresses(accounts), nil
}

// ChainID calls eth_chainId.
func (p *RPCProvider) ChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := p.client.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return 0, mapError(err, domain.ErrProviderUnavailable)
	}
	return uint64(id), nil
}

// SignMessage calls personal_sign with the UTF-8 message bytes.
func (p *RPCProvider) SignMessage(ctx context.Context, address, message string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", domain.ErrSigningFailed.WithDetails("invalid signer address: " + address)
	}
	var sig hexutil.Bytes
	err := p.client.CallContext(ctx, &sig, "personal_sign", hexutil.Bytes(message), common.HexToAddress(address))
	if err != nil {
		return "", mapError(err, domain.ErrSigningFailed)
	}
	if len(sig) == 0 {
		return "", domain.ErrSigningFailed.WithDetails("empty signature")
	}
	return sig.String(), nil
}

// Subscribe registers change callbacks and starts polling on the first
// subscription.
func (p *RPCProvider) Subscribe(onAccountsChanged func([]string), onChainChanged func(string)) func() {
	return p.subs.Add(onAccountsChanged, onChainChanged)
}

// Close stops the watcher and closes the client if Dial created it.
func (p *RPCProvider) Close() {
	p.stopWatching()
	if p.ownsClient {
		p.client.Close()
	}
}

func (p *RPCProvider) startWatch() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopWatch != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.stopWatch = cancel
	p.watchDone = done

	w := NewWatcher(p, p.subs, p.cfg.Watcher, p.logger)
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
}

func (p *RPCProvider) stopWatching() {
	p.mu.Lock()
	cancel, done := p.stopWatch, p.watchDone
	p.stopWatch, p.watchDone = nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func hexAddresses(in []common.Address) []string {
	out := make([]string, len(in))
	for i, a := range in {
		out[i] = a.Hex()
	}
	return out
}
