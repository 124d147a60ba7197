package networking

import (
	"fmt"
	"strconv"

	"cdn-blocker/lib/errdefs"
	"cdn-blocker/lib/log"
)

// defaultAllows keeps DNS and DoH reachable no matter what the block list
// contains. Each entry is inserted at OUTPUT position 1, so the final
// top-to-bottom order is the reverse of this slice; all entries are
// unconditional accepts, so only "before the deny jump" matters.
var defaultAllows = [][]string{
	{"-p", "tcp", "--dport", "443", "-j", "ACCEPT"},
	{"-p", "udp", "--dport", "443", "-j", "ACCEPT"},
	{"-p", "tcp", "--dport", "53", "-j", "ACCEPT"},
	{"-p", "udp", "--dport", "53", "-j", "ACCEPT"},
}

// AllowList inserts priority accept rules at the head of OUTPUT, strictly
// before the deny chain's jump. These rules are operator-managed state:
// flush never removes them.
type AllowList struct {
	ipt IPTables
}

func NewAllowList(ipt IPTables) *AllowList {
	return &AllowList{ipt: ipt}
}

// InstallDefaults inserts the accept rules for tcp/443, udp/443, tcp/53
// and udp/53 at position 1, skipping ones already present.
func (a *AllowList) InstallDefaults() error {
	for _, spec := range defaultAllows {
		exists, err := a.ipt.Exists(FilterTable, OutputChain, spec...)
		if err != nil {
			return fmt.Errorf("failed to check allow rule %v: %v", spec, err)
		}
		if exists {
			continue
		}
		if err := a.ipt.Insert(FilterTable, OutputChain, 1, spec...); err != nil {
			return fmt.Errorf("failed to insert allow rule %v: %v", spec, err)
		}
	}
	return nil
}

// AllowPort inserts TCP accept rules for the given destination and source
// port at position 1. An out-of-range port is rejected before any
// mutation.
func (a *AllowList) AllowPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: %d is out of range 1-65535", errdefs.ErrInvalidPort, port)
	}

	p := strconv.Itoa(port)
	specs := [][]string{
		{"-p", "tcp", "--dport", p, "-j", "ACCEPT"},
		{"-p", "tcp", "--sport", p, "-j", "ACCEPT"},
	}

	for _, spec := range specs {
		exists, err := a.ipt.Exists(FilterTable, OutputChain, spec...)
		if err != nil {
			return fmt.Errorf("failed to check allow rule %v: %v", spec, err)
		}
		if exists {
			log.Debugf("Allow rule %v already present", spec)
			continue
		}
		if err := a.ipt.Insert(FilterTable, OutputChain, 1, spec...); err != nil {
			return fmt.Errorf("failed to insert allow rule %v: %v", spec, err)
		}
	}

	log.Infof("Port %d is now allow-listed (tcp, both directions)", port)
	return nil
}

// DefaultsInstalled reports whether every default allow rule is present.
func (a *AllowList) DefaultsInstalled() (bool, error) {
	for _, spec := range defaultAllows {
		exists, err := a.ipt.Exists(FilterTable, OutputChain, spec...)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}
