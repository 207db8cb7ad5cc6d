// Package shutdown coordinates graceful termination of long-running
// walletlink commands.
//
// Usage:
//
//	h := shutdown.NewHandler(5*time.Second, log)
//	h.OnShutdown(func(ctx context.Context) error { return store.Close() })
//	err := h.Wait(ctx) // returns after SIGINT/SIGTERM or ctx is done
package shutdown
