package networking

import (
	"fmt"

	"cdn-blocker/lib/log"
)

// BlockChain owns the dedicated filter-table chain holding the drop rule
// and its single jump binding from OUTPUT.
type BlockChain struct {
	ipt  IPTables
	name string
}

func NewBlockChain(ipt IPTables, name string) *BlockChain {
	return &BlockChain{ipt: ipt, name: name}
}

func (c *BlockChain) Name() string {
	return c.name
}

func (c *BlockChain) jumpSpec() []string {
	return []string{"-j", c.name}
}

// Exists reports whether the chain itself is present.
func (c *BlockChain) Exists() (bool, error) {
	return c.ipt.ChainExists(FilterTable, c.name)
}

// IsBound reports whether the OUTPUT jump into the chain is present.
func (c *BlockChain) IsBound() (bool, error) {
	return c.ipt.Exists(FilterTable, OutputChain, c.jumpSpec()...)
}

// EnsureWithBinding creates the chain if absent and binds it into OUTPUT
// with exactly one jump rule. Re-running never duplicates the jump.
func (c *BlockChain) EnsureWithBinding() error {
	exists, err := c.Exists()
	if err != nil {
		return fmt.Errorf("failed to check chain %s: %v", c.name, err)
	}
	if !exists {
		log.Infof("Creating chain %s", c.name)
		if err := c.ipt.NewChain(FilterTable, c.name); err != nil {
			return fmt.Errorf("failed to create chain %s: %v", c.name, err)
		}
	}

	bound, err := c.IsBound()
	if err != nil {
		return fmt.Errorf("failed to check %s binding: %v", OutputChain, err)
	}
	if !bound {
		log.Infof("Binding chain %s into %s", c.name, OutputChain)
		if err := c.ipt.Append(FilterTable, OutputChain, c.jumpSpec()...); err != nil {
			return fmt.Errorf("failed to bind chain %s: %v", c.name, err)
		}
	}

	return nil
}

// FlushMembers removes all rules inside the chain, keeping the chain and
// its binding.
func (c *BlockChain) FlushMembers() error {
	if err := c.ipt.ClearChain(FilterTable, c.name); err != nil {
		return fmt.Errorf("failed to flush chain %s: %v", c.name, err)
	}
	return nil
}

func dropSpec(setName string) []string {
	return []string{"-m", "set", "--match-set", setName, "dst", "-j", "DROP"}
}

// AppendMatchSetDrop appends the single drop rule: traffic whose
// destination matches any member of setName is dropped. One rule covers
// the whole set regardless of its size.
func (c *BlockChain) AppendMatchSetDrop(setName string) error {
	if err := c.ipt.Append(FilterTable, c.name, dropSpec(setName)...); err != nil {
		return fmt.Errorf("failed to append drop rule to %s: %v", c.name, err)
	}
	return nil
}

// HasMatchSetDrop reports whether the drop rule for setName is present.
// Callers must check Exists first; querying rules of a missing chain is an
// error.
func (c *BlockChain) HasMatchSetDrop(setName string) (bool, error) {
	return c.ipt.Exists(FilterTable, c.name, dropSpec(setName)...)
}

// Unbind deletes the OUTPUT jump until none remain. Prior buggy runs may
// have left duplicates; each delete attempt on an absent rule is not an
// error.
func (c *BlockChain) Unbind() error {
	for {
		bound, err := c.IsBound()
		if err != nil {
			return fmt.Errorf("failed to check %s binding: %v", OutputChain, err)
		}
		if !bound {
			return nil
		}

		log.Infof("Removing %s jump to chain %s", OutputChain, c.name)
		if err := c.ipt.Delete(FilterTable, OutputChain, c.jumpSpec()...); err != nil {
			return fmt.Errorf("failed to remove %s jump: %v", OutputChain, err)
		}
	}
}

// Destroy flushes the chain's rules and removes the chain identity.
// A chain that never existed is not an error.
func (c *BlockChain) Destroy() error {
	exists, err := c.Exists()
	if err != nil {
		return fmt.Errorf("failed to check chain %s: %v", c.name, err)
	}
	if !exists {
		log.Debugf("Chain %s does not exist, nothing to destroy", c.name)
		return nil
	}

	if err := c.ipt.ClearChain(FilterTable, c.name); err != nil {
		return fmt.Errorf("failed to flush chain %s: %v", c.name, err)
	}
	if err := c.ipt.DeleteChain(FilterTable, c.name); err != nil {
		return fmt.Errorf("failed to delete chain %s: %v", c.name, err)
	}
	return nil
}
