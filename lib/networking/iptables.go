package networking

import (
	"github.com/coreos/go-iptables/iptables"
)

// Top-level traffic path the deny chain binds into and the allow rules
// live in.
const (
	FilterTable = "filter"
	OutputChain = "OUTPUT"
)

// IPTables is the subset of the iptables surface this tool drives. The
// concrete implementation is coreos/go-iptables; tests substitute a fake.
type IPTables interface {
	ChainExists(table, chain string) (bool, error)
	NewChain(table, chain string) error
	ClearChain(table, chain string) error
	DeleteChain(table, chain string) error
	Exists(table, chain string, rulespec ...string) (bool, error)
	Append(table, chain string, rulespec ...string) error
	Insert(table, chain string, pos int, rulespec ...string) error
	Delete(table, chain string, rulespec ...string) error
}

// NewIPTables returns an IPv4 iptables handle.
func NewIPTables() (IPTables, error) {
	return iptables.NewWithProtocol(iptables.ProtocolIPv4)
}
