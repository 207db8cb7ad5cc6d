// Package provider adapts a key-holding wallet agent to walletlink.
//
// A Provider requests accounts, signs messages, reports the network and
// publishes account/chain change notifications. It performs no retries
// and no caching: a failed call surfaces immediately.
//
//   - provider.go: Provider interface and error mapping
//   - broadcast.go: subscriber fan-out shared by implementations
//   - rpc.go: JSON-RPC signer (eth_requestAccounts, personal_sign, ...)
//   - watcher.go: polling change detection for signers that cannot push
//     notifications
package provider
