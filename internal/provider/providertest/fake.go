// Package providertest provides a scriptable in-memory Provider for tests.
package providertest

import (
	"context"
	"sync"

	"github.com/yndnr/walletlink-go/internal/core/domain"
	"github.com/yndnr/walletlink-go/internal/provider"
)

// Fake is a scriptable provider. Hooks, when set, replace the default
// behavior of the matching call; otherwise the fake answers from its
// fields. It is safe for concurrent use.
type Fake struct {
	mu sync.Mutex

	Accounts  []string
	Chain     uint64
	Signature string

	RequestAccountsHook func(ctx context.Context) ([]string, error)
	SignHook            func(ctx context.Context, address, message string) (string, error)
	ChainIDHook         func(ctx context.Context) (uint64, error)

	RequestCalls int
	SignCalls    int
	Signed       []SignRequest

	subs *provider.Broadcaster
}

// SignRequest records one SignMessage call.
type SignRequest struct {
	Address string
	Message string
}

var _ provider.Provider = (*Fake)(nil)

// New creates a fake exposing accounts on chainID.
func New(chainID uint64, accounts ...string) *Fake {
	return &Fake{
		Accounts:  accounts,
		Chain:     chainID,
		Signature: "0xsig",
		subs:      provider.NewBroadcaster(),
	}
}

// RequestAccounts implements provider.Provider.
func (f *Fake) RequestAccounts(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	f.RequestCalls++
	hook := f.RequestAccountsHook
	accounts := append([]string(nil), f.Accounts...)
	f.mu.Unlock()

	if hook != nil {
		return hook(ctx)
	}
	if len(accounts) == 0 {
		return nil, domain.ErrUserRejected.WithDetails("no accounts")
	}
	return accounts, nil
}

// SignMessage implements provider.Provider.
func (f *Fake) SignMessage(ctx context.Context, address, message string) (string, error) {
	f.mu.Lock()
	f.SignCalls++
	f.Signed = append(f.Signed, SignRequest{Address: address, Message: message})
	hook := f.SignHook
	sig := f.Signature
	f.mu.Unlock()

	if hook != nil {
		return hook(ctx, address, message)
	}
	return sig, nil
}

// ChainID implements provider.Provider.
func (f *Fake) ChainID(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	hook := f.ChainIDHook
	chain := f.Chain
	f.mu.Unlock()

	if hook != nil {
		return hook(ctx)
	}
	return chain, nil
}

// Subscribe implements provider.Provider.
func (f *Fake) Subscribe(onAccountsChanged func([]string), onChainChanged func(string)) func() {
	return f.subs.Add(onAccountsChanged, onChainChanged)
}

// Subscribers returns the number of live subscriptions.
func (f *Fake) Subscribers() int {
	return f.subs.Len()
}

// EmitAccounts delivers accountsChanged to subscribers synchronously.
func (f *Fake) EmitAccounts(accounts ...string) {
	f.subs.EmitAccounts(accounts)
}

// EmitChain delivers chainChanged to subscribers synchronously.
func (f *Fake) EmitChain(chainIDHex string) {
	f.subs.EmitChain(chainIDHex)
}

// SetAccounts replaces the account list returned by RequestAccounts.
func (f *Fake) SetAccounts(accounts ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Accounts = accounts
}

// Calls returns the RequestAccounts and SignMessage call counts.
func (f *Fake) Calls() (requests, signs int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.RequestCalls, f.SignCalls
}
