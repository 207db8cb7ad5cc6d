package command

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/yndnr/walletlink-go/internal/core/domain"
	"github.com/yndnr/walletlink-go/internal/provider/providertest"
	"github.com/yndnr/walletlink-go/internal/storage"
)

const (
	addrA = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	addrB = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

// mockServer creates a test HTTP server with custom handlers.
type mockServer struct {
	*httptest.Server
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []*http.Request
}

// newMockServer creates a mock backend that accepts every login.
func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests = append(m.requests, r.Clone(context.Background()))
		handler, ok := m.handlers[r.URL.Path]
		m.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(m.Close)

	m.handle("/auth/challenge", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{"challenge": "sign-me"})
	})
	m.handle("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{"token": "tok-1"})
	})
	m.handle("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return m
}

// handle registers a handler for an exact path.
func (m *mockServer) handle(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// hits counts requests to path.
func (m *mockServer) hits(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.requests {
		if r.URL.Path == path {
			n++
		}
	}
	return n
}

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorResponse writes an error response.
func errorResponse(w http.ResponseWriter, status int, code, message string) {
	jsonResponse(w, status, map[string]string{"code": code, "message": message})
}

// syncBuffer is a bytes.Buffer safe for the watch loop.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// harness runs CLI invocations against a fake wallet, a shared memory
// store and a mock backend.
type harness struct {
	t       *testing.T
	wallet  *providertest.Fake
	store   *storage.MemoryStore
	backend *mockServer
	stdout  *syncBuffer
	stderr  *syncBuffer
	stdin   io.Reader

	noProvider bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	return &harness{
		t:       t,
		wallet:  providertest.New(1, addrA),
		store:   storage.NewMemoryStore(),
		backend: newMockServer(t),
		stdout:  &syncBuffer{},
		stderr:  &syncBuffer{},
	}
}

// run executes one invocation with JSON output.
func (h *harness) run(ctx context.Context, args ...string) error {
	h.t.Helper()
	h.stdout.Reset()

	app := App()
	app.Writer = h.stdout
	app.ErrWriter = h.stderr
	if h.stdin != nil {
		app.Reader = h.stdin
	}
	deps := Deps{Store: h.store}
	if !h.noProvider {
		deps.Provider = h.wallet
	}
	app.Metadata[metaDeps] = deps

	full := []string{"walletlink", "-q", "-o", "json", "--backend-url", h.backend.URL}
	return app.RunContext(ctx, append(full, args...))
}

// status decodes the last JSON status written to stdout.
func (h *harness) status() map[string]any {
	h.t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(h.stdout.String()), &m); err != nil {
		h.t.Fatalf("decode output %q: %v", h.stdout.String(), err)
	}
	return m
}

// persisted returns the stored session keys.
func (h *harness) persisted() domain.PersistedSession {
	h.t.Helper()
	p, err := storage.Load(context.Background(), h.store)
	if err != nil {
		h.t.Fatalf("storage.Load() error = %v", err)
	}
	return p
}

func (h *harness) seed(address, token string) {
	h.t.Helper()
	ctx := context.Background()
	if err := h.store.Set(ctx, domain.KeyWalletAddress, address); err != nil {
		h.t.Fatal(err)
	}
	if err := h.store.Set(ctx, domain.KeyAuthToken, token); err != nil {
		h.t.Fatal(err)
	}
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}
