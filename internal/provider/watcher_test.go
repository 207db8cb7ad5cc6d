package provider

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/walletlink-go/internal/telemetry/logger"
)

type scriptedSource struct {
	mu       sync.Mutex
	accounts []string
	chainID  uint64
	err      error
}

func (s *scriptedSource) Accounts(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]string(nil), s.accounts...), nil
}

func (s *scriptedSource) ChainID(context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	return s.chainID, nil
}

func (s *scriptedSource) set(accounts []string, chainID uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts, s.chainID, s.err = accounts, chainID, err
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) accounts(a []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(a) == 0 {
		r.events = append(r.events, "accounts:[]")
		return
	}
	r.events = append(r.events, "accounts:"+a[0])
}

func (r *recorder) chain(c string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "chain:"+c)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func newTestWatcher(src StateSource) (*Watcher, *recorder) {
	b := NewBroadcaster()
	rec := &recorder{}
	b.Add(rec.accounts, rec.chain)
	return NewWatcher(src, b, WatcherConfig{PollInterval: time.Millisecond, DisconnectAfter: 2}, logger.NewNop()), rec
}

func TestWatcher_BaselineEmitsNothing(t *testing.T) {
	src := &scriptedSource{accounts: []string{"0xa"}, chainID: 1}
	w, rec := newTestWatcher(src)

	w.Poll(context.Background())
	w.Poll(context.Background())

	if got := rec.list(); len(got) != 0 {
		t.Errorf("events = %v, want none", got)
	}
}

func TestWatcher_DetectsChanges(t *testing.T) {
	ctx := context.Background()
	src := &scriptedSource{accounts: []string{"0xa"}, chainID: 1}
	w, rec := newTestWatcher(src)
	w.Poll(ctx)

	src.set([]string{"0xb"}, 1, nil)
	w.Poll(ctx)
	src.set([]string{"0xb"}, 137, nil)
	w.Poll(ctx)
	src.set([]string{"0XB"}, 137, nil)
	w.Poll(ctx)
	src.set(nil, 137, nil)
	w.Poll(ctx)

	want := []string{"accounts:0xb", "chain:0x89", "accounts:[]"}
	if got := rec.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestWatcher_ReportsDisconnectOnce(t *testing.T) {
	ctx := context.Background()
	src := &scriptedSource{accounts: []string{"0xa"}, chainID: 1}
	w, rec := newTestWatcher(src)
	w.Poll(ctx)

	src.set(nil, 0, errors.New("connection refused"))
	w.Poll(ctx)
	if got := rec.list(); len(got) != 0 {
		t.Fatalf("events after one failure = %v, want none", got)
	}
	w.Poll(ctx)
	w.Poll(ctx)

	want := []string{"accounts:[]"}
	if got := rec.list(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}

	// Recovery re-establishes a baseline without emitting.
	src.set([]string{"0xa"}, 1, nil)
	w.Poll(ctx)
	if got := rec.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("events after recovery = %v, want %v", got, want)
	}
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	src := &scriptedSource{accounts: []string{"0xa"}, chainID: 1}
	w, rec := newTestWatcher(src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	src.set([]string{"0xb"}, 1, nil)

	deadline := time.After(2 * time.Second)
	for len(rec.list()) == 0 {
		select {
		case <-deadline:
			t.Fatal("watcher did not emit the account change")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
