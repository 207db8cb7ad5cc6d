package output

import (
	"strconv"

	"github.com/yndnr/walletlink-go/internal/core/domain"
)

// StatusView is the printable form of a session. The token never appears.
type StatusView struct {
	Phase         string `json:"phase" yaml:"phase"`
	Address       string `json:"address,omitempty" yaml:"address,omitempty"`
	ChainID       uint64 `json:"chain_id,omitempty" yaml:"chain_id,omitempty"`
	Connected     bool   `json:"connected" yaml:"connected"`
	Authenticated bool   `json:"authenticated" yaml:"authenticated"`
	Provisional   bool   `json:"provisional,omitempty" yaml:"provisional,omitempty"`
	Restore       string `json:"restore,omitempty" yaml:"restore,omitempty"`
	Error         string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewStatusView builds a view of s.
func NewStatusView(s domain.Session) StatusView {
	return StatusView{
		Phase:         s.Phase.String(),
		Address:       s.Address,
		ChainID:       s.ChainID,
		Connected:     s.IsConnected,
		Authenticated: s.IsAuthenticated,
		Provisional:   s.Provisional,
		Error:         s.ErrorString(),
	}
}

// WithRestore records the outcome of a silent restore.
func (v StatusView) WithRestore(outcome string) StatusView {
	v.Restore = outcome
	return v
}

// Table implements Tabular.
func (v StatusView) Table() *Table {
	t := &Table{Headers: []string{"FIELD", "VALUE"}}
	t.AddRow("phase", v.Phase)
	t.AddRow("address", orDash(v.Address))
	chain := "-"
	if v.ChainID != 0 {
		chain = strconv.FormatUint(v.ChainID, 10)
	}
	t.AddRow("chain_id", chain)
	t.AddRow("connected", strconv.FormatBool(v.Connected))
	auth := strconv.FormatBool(v.Authenticated)
	if v.Provisional {
		auth += " (provisional)"
	}
	t.AddRow("authenticated", auth)
	if v.Restore != "" {
		t.AddRow("restore", v.Restore)
	}
	if v.Error != "" {
		t.AddRow("error", v.Error)
	}
	return t
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
