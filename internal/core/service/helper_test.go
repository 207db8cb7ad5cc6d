package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/walletlink-go/internal/backend"
	"github.com/yndnr/walletlink-go/internal/core/domain"
	"github.com/yndnr/walletlink-go/internal/provider"
	"github.com/yndnr/walletlink-go/internal/storage"
	"github.com/yndnr/walletlink-go/internal/telemetry/logger"
)

const (
	addrA = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	addrB = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

// fakeBackend is a scriptable Backend and Logouter.
type fakeBackend struct {
	mu sync.Mutex

	challenge string
	token     string
	logoutErr error

	challengeHook func(ctx context.Context, address string) (string, error)
	loginHook     func(ctx context.Context, address, signature string) (backend.LoginResult, error)

	challenges []string
	logins     []string
	logouts    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{challenge: "nonce123", token: "tok1"}
}

func (f *fakeBackend) Challenge(ctx context.Context, address string) (string, error) {
	f.mu.Lock()
	f.challenges = append(f.challenges, address)
	hook, challenge := f.challengeHook, f.challenge
	f.mu.Unlock()

	if hook != nil {
		return hook(ctx, address)
	}
	return challenge, nil
}

func (f *fakeBackend) Login(ctx context.Context, address, signature string) (backend.LoginResult, error) {
	f.mu.Lock()
	f.logins = append(f.logins, address+"/"+signature)
	hook, token := f.loginHook, f.token
	f.mu.Unlock()

	if hook != nil {
		return hook(ctx, address, signature)
	}
	return backend.LoginResult{Token: token}, nil
}

func (f *fakeBackend) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return f.logoutErr
}

func (f *fakeBackend) counts() (challenges, logins, logouts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.challenges), len(f.logins), f.logouts
}

// harness wires the service components around in-memory collaborators.
type harness struct {
	state   *State
	store   *storage.MemoryStore
	backend *fakeBackend
	conn    *ConnectionManager
	auth    *Authenticator
	boot    *Bootstrapper
}

func newHarness(t *testing.T, prov provider.Provider) *harness {
	return newHarnessWithConfig(t, prov, nil)
}

func newHarnessWithConfig(t *testing.T, prov provider.Provider, cfg *ConnectionConfig) *harness {
	t.Helper()
	return buildHarness(t, prov, cfg, storage.NewMemoryStore())
}

// restarted returns a harness with fresh in-memory state over the same
// store, as seen by the next process.
func (h *harness) restarted(t *testing.T, prov provider.Provider) *harness {
	t.Helper()
	return buildHarness(t, prov, nil, h.store)
}

func buildHarness(t *testing.T, prov provider.Provider, cfg *ConnectionConfig, store *storage.MemoryStore) *harness {
	t.Helper()

	h := &harness{
		state:   NewState(),
		store:   store,
		backend: newFakeBackend(),
	}
	log := WithLogger(logger.NewNop())
	h.conn = NewConnectionManager(h.state, prov, h.store, h.backend, cfg, log)
	h.auth = NewAuthenticator(h.state, prov, h.backend, h.store, log)
	h.boot = NewBootstrapper(h.state, h.conn, h.store, log)
	checkInvariants(t, h.state)
	return h
}

// checkInvariants fails the test if any published snapshot violates the
// session invariants.
func checkInvariants(t *testing.T, st *State) {
	t.Helper()
	unsub := st.Subscribe(func(s domain.Session) {
		if !s.Valid() {
			t.Errorf("invalid session published: %+v", s)
		}
	})
	t.Cleanup(unsub)
}

func (h *harness) persisted() map[string]string {
	return h.store.Snapshot()
}

// connected brings the harness to a connected, unauthenticated session.
func (h *harness) connected(t *testing.T) {
	t.Helper()
	if err := h.conn.Connect(context.Background(), false); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
}

// authenticated brings the harness to an authenticated session.
func (h *harness) authenticated(t *testing.T) {
	t.Helper()
	h.connected(t)
	if err := h.auth.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func wantErr(t *testing.T, got, want error) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Fatalf("error = %v, want %v", got, want)
	}
}
