package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/yndnr/walletlink-go/internal/core/domain"
	"github.com/yndnr/walletlink-go/internal/storage"
)

// errUnchanged aborts a mutation without error and without notifying.
var errUnchanged = errors.New("state unchanged")

// State is the shared session handle.
//
// Subscribers are called synchronously after each mutation, in mutation
// order, outside the state lock. A subscriber may read the state but must
// not mutate it.
type State struct {
	mu      sync.Mutex
	session domain.Session

	// epoch advances on every teardown. Flows that started in an older
	// epoch must not commit.
	epoch uint64

	// Events received while a connect is in flight.
	pendingAddr  string
	pendingChain uint64

	authenticating bool

	subs    map[int]func(domain.Session)
	nextSub int

	// notifyMu orders subscriber notifications; persistMu orders store writes.
	notifyMu  sync.Mutex
	persistMu sync.Mutex
}

// NewState creates an empty session state in PhaseIdle.
func NewState() *State {
	return &State{subs: make(map[int]func(domain.Session))}
}

// Snapshot returns a copy of the current session.
func (st *State) Snapshot() domain.Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.session
}

// Token returns the bearer token when the session is authenticated.
func (st *State) Token() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.session.IsAuthenticated {
		return ""
	}
	return st.session.Token
}

// Subscribe registers fn to receive a snapshot after every mutation.
// The returned function unsubscribes; it is safe to call more than once.
func (st *State) Subscribe(fn func(domain.Session)) func() {
	st.mu.Lock()
	id := st.nextSub
	st.nextSub++
	st.subs[id] = fn
	st.mu.Unlock()

	return func() {
		st.mu.Lock()
		delete(st.subs, id)
		st.mu.Unlock()
	}
}

// ClearError clears the last user-visible failure.
func (st *State) ClearError() {
	_ = st.mutate(func(s *domain.Session) error {
		if s.Err == nil {
			return errUnchanged
		}
		s.Err = nil
		return nil
	})
}

// mutate applies fn under the state lock. If fn returns an error the
// session is restored to its previous value and nobody is notified;
// errUnchanged is reported as success. Otherwise the invariants are
// re-established and subscribers receive the new snapshot.
func (st *State) mutate(fn func(s *domain.Session) error) error {
	st.mu.Lock()
	before := st.session
	if err := fn(&st.session); err != nil {
		st.session = before
		st.mu.Unlock()
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	st.session.Normalize()
	after := st.session
	subs := st.subscribers()

	// Taking notifyMu before releasing mu keeps notifications in
	// mutation order.
	st.notifyMu.Lock()
	st.mu.Unlock()
	defer st.notifyMu.Unlock()

	for _, fn := range subs {
		fn(after)
	}
	return nil
}

// subscribers returns callbacks in registration order. Caller holds mu.
func (st *State) subscribers() []func(domain.Session) {
	if len(st.subs) == 0 {
		return nil
	}
	ids := make([]int, 0, len(st.subs))
	for id := range st.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(domain.Session), len(ids))
	for i, id := range ids {
		out[i] = st.subs[id]
	}
	return out
}

// currentEpoch returns the teardown epoch.
func (st *State) currentEpoch() uint64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.epoch
}

// ============================================================================
// Persistence
// ============================================================================

// persistAddress writes the current address. Writes are serialized and
// always reflect the latest state, so concurrent writers cannot leave an
// older address on disk.
func (st *State) persistAddress(ctx context.Context, store storage.Store) error {
	st.persistMu.Lock()
	defer st.persistMu.Unlock()

	s := st.Snapshot()
	if !s.IsConnected {
		return nil
	}
	if err := store.Set(ctx, domain.KeyWalletAddress, s.Address); err != nil {
		return domain.ErrStorage.WithDetails("write " + domain.KeyWalletAddress).WithCause(err)
	}
	return nil
}

// persistConnection writes the address of a fresh connection. A persisted
// token issued for another account is removed first so it can never be
// restored under this address.
func (st *State) persistConnection(ctx context.Context, store storage.Store) error {
	st.persistMu.Lock()
	defer st.persistMu.Unlock()

	s := st.Snapshot()
	if !s.IsConnected {
		return nil
	}
	p, err := storage.Load(ctx, store)
	if err != nil {
		return err
	}
	if p.Token != "" && !domain.SameAddress(p.TokenOwner(), s.Address) {
		if err := storage.RemoveToken(ctx, store); err != nil {
			return err
		}
	}
	if err := store.Set(ctx, domain.KeyWalletAddress, s.Address); err != nil {
		return domain.ErrStorage.WithDetails("write " + domain.KeyWalletAddress).WithCause(err)
	}
	return nil
}

// persistSession writes the keys of an authenticated session. The old
// token goes first so a partial write never pairs a token with the wrong
// owner.
func (st *State) persistSession(ctx context.Context, store storage.Store) error {
	st.persistMu.Lock()
	defer st.persistMu.Unlock()

	s := st.Snapshot()
	if !s.IsAuthenticated {
		return nil
	}
	if err := store.Remove(ctx, domain.KeyAuthToken); err != nil {
		return domain.ErrStorage.WithDetails("remove " + domain.KeyAuthToken).WithCause(err)
	}
	if err := store.Set(ctx, domain.KeyAuthOwner, s.Address); err != nil {
		return domain.ErrStorage.WithDetails("write " + domain.KeyAuthOwner).WithCause(err)
	}
	if err := store.Set(ctx, domain.KeyAuthToken, s.Token); err != nil {
		return domain.ErrStorage.WithDetails("write " + domain.KeyAuthToken).WithCause(err)
	}
	if err := store.Set(ctx, domain.KeyWalletAddress, s.Address); err != nil {
		return domain.ErrStorage.WithDetails("write " + domain.KeyWalletAddress).WithCause(err)
	}
	return nil
}

// removeToken deletes the persisted token and its owner unless the session
// has been re-authenticated since.
func (st *State) removeToken(ctx context.Context, store storage.Store) error {
	st.persistMu.Lock()
	defer st.persistMu.Unlock()

	if st.Snapshot().IsAuthenticated {
		return nil
	}
	return storage.RemoveToken(ctx, store)
}

// clearPersisted removes both persisted keys unless a newer session has
// connected since the teardown.
func (st *State) clearPersisted(ctx context.Context, store storage.Store) error {
	st.persistMu.Lock()
	defer st.persistMu.Unlock()

	if st.Snapshot().IsConnected {
		return nil
	}
	return storage.Clear(ctx, store)
}
