// Package main provides the entry point for walletlink.
//
// walletlink connects an EIP-1193 style wallet signer, authenticates the
// selected account against a backend by signing a challenge, and keeps
// the session in a local store so later invocations resume silently.
//
// Usage:
//
//	walletlink --provider-url http://127.0.0.1:8545 connect --login
//	walletlink status -o json
//	walletlink request /api/profile
//	walletlink watch --metrics-addr :9102
package main
