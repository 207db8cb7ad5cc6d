package provider

import (
	"context"
	"errors"
	"net"
	"net/url"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/yndnr/walletlink-go/internal/core/domain"
)

// EIP-1193 provider error codes.
const (
	CodeUserRejected = 4001
	CodeUnauthorized = 4100
	CodeUnsupported  = 4200
	CodeDisconnected = 4900
	CodeChainGone    = 4901
)

// Provider is the wallet capability consumed by the connection manager
// and the authentication flow.
//
// Implementations should return promptly once ctx is done. The connection
// manager stops waiting at its timeout either way, but a call that ignores
// ctx keeps its goroutine until the wallet answers.
type Provider interface {
	// RequestAccounts prompts for account access and returns the ordered
	// account list. Fails with ErrProviderUnavailable or ErrUserRejected.
	RequestAccounts(ctx context.Context) ([]string, error)

	// SignMessage signs message with the key of address.
	// Fails with ErrSigningFailed or ErrUserRejected.
	SignMessage(ctx context.Context, address, message string) (string, error)

	// ChainID returns the current network id.
	ChainID(ctx context.Context) (uint64, error)

	// Subscribe registers change callbacks. Callbacks for one channel are
	// invoked in emission order. The returned function unsubscribes.
	Subscribe(onAccountsChanged func([]string), onChainChanged func(string)) (unsubscribe func())
}

// mapError converts a transport or JSON-RPC error into the domain
// taxonomy. fallback is used for wallet-side failures that are neither a
// user rejection nor an availability problem. Context errors pass through
// unchanged so callers can tell a timeout from a provider failure.
func mapError(err error, fallback *domain.DomainError) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case CodeUserRejected:
			return domain.ErrUserRejected.WithCause(err)
		case CodeUnauthorized, CodeDisconnected, CodeChainGone, CodeUnsupported, -32601:
			return domain.ErrProviderUnavailable.WithCause(err)
		}
		return fallback.WithCause(err)
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return domain.ErrProviderUnavailable.WithDetails(httpErr.Status).WithCause(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.ErrProviderUnavailable.WithCause(err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return domain.ErrProviderUnavailable.WithCause(err)
	}
	if errors.Is(err, rpc.ErrClientQuit) {
		return domain.ErrProviderUnavailable.WithCause(err)
	}
	return fallback.WithCause(err)
}
