package provider

import (
	"sort"
	"sync"
)

type subscriber struct {
	onAccounts func([]string)
	onChain    func(string)
}

// Broadcaster fans change notifications out to subscribers.
// Emit calls run callbacks synchronously on the emitting goroutine.
type Broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]subscriber

	// onFirst and onLast run outside the lock when the subscriber count
	// goes 0→1 and 1→0.
	onFirst func()
	onLast  func()
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]subscriber)}
}

// Add registers callbacks. Either may be nil.
func (b *Broadcaster) Add(onAccounts func([]string), onChain func(string)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = subscriber{onAccounts: onAccounts, onChain: onChain}
	first := len(b.subs) == 1
	hook := b.onFirst
	b.mu.Unlock()

	if first && hook != nil {
		hook()
	}

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Broadcaster) remove(id int) {
	b.mu.Lock()
	if _, ok := b.subs[id]; !ok {
		b.mu.Unlock()
		return
	}
	delete(b.subs, id)
	last := len(b.subs) == 0
	hook := b.onLast
	b.mu.Unlock()

	if last && hook != nil {
		hook()
	}
}

// Len returns the number of subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// EmitAccounts delivers an accountsChanged notification.
func (b *Broadcaster) EmitAccounts(accounts []string) {
	for _, s := range b.snapshot() {
		if s.onAccounts != nil {
			cp := make([]string, len(accounts))
			copy(cp, accounts)
			s.onAccounts(cp)
		}
	}
}

// EmitChain delivers a chainChanged notification.
func (b *Broadcaster) EmitChain(chainIDHex string) {
	for _, s := range b.snapshot() {
		if s.onChain != nil {
			s.onChain(chainIDHex)
		}
	}
}

// snapshot returns subscribers in registration order.
func (b *Broadcaster) snapshot() []subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]subscriber, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.subs[id])
	}
	return out
}
