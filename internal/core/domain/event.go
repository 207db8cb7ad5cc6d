package domain

// EventKind identifies a provider change notification.
type EventKind int

const (
	// EventAccountsChanged carries the provider's ordered account list.
	EventAccountsChanged EventKind = iota + 1
	// EventChainChanged carries the provider's hex-encoded chain id.
	EventChainChanged
)

// String returns the provider event name.
func (k EventKind) String() string {
	switch k {
	case EventAccountsChanged:
		return "accountsChanged"
	case EventChainChanged:
		return "chainChanged"
	default:
		return "unknown"
	}
}

// ChangeEvent is a provider notification. Exactly one payload field is
// meaningful, selected by Kind.
type ChangeEvent struct {
	Kind       EventKind
	Accounts   []string
	ChainIDHex string
}

// AccountsChanged builds an accountsChanged event.
func AccountsChanged(accounts ...string) ChangeEvent {
	cp := make([]string, len(accounts))
	copy(cp, accounts)
	return ChangeEvent{Kind: EventAccountsChanged, Accounts: cp}
}

// ChainChanged builds a chainChanged event.
func ChainChanged(chainIDHex string) ChangeEvent {
	return ChangeEvent{Kind: EventChainChanged, ChainIDHex: chainIDHex}
}

// PrimaryAccount returns the first account of an accountsChanged event,
// or "" when the list is empty.
func (e ChangeEvent) PrimaryAccount() string {
	if len(e.Accounts) == 0 {
		return ""
	}
	return e.Accounts[0]
}
