package networking

import (
	"net/netip"

	"cdn-blocker/lib/config"
	"cdn-blocker/lib/errdefs"
	"cdn-blocker/lib/log"
)

// Mutation stages, reported when a step fails after earlier steps
// succeeded.
const (
	StageAddressSet    = "address-set"
	StageRuleGroup     = "rule-group"
	StageAllowDefaults = "allow-defaults"
	StageDropRule      = "drop-rule"
	StageExtraRules    = "extra-rules"
	StageUnbind        = "unbind"
	StageDestroyChain  = "destroy-rule-group"
	StageDestroySet    = "destroy-address-set"
)

// Status is a snapshot of the firewall state this tool owns.
type Status struct {
	IPSetExists          bool `json:"ipset_exists"`
	ChainExists          bool `json:"chain_exists"`
	ChainBound           bool `json:"chain_bound"`
	DropRulePresent      bool `json:"drop_rule_present"`
	AllowDefaultsPresent bool `json:"allow_defaults_present"`
}

// Reconciler sequences the firewall mutations of apply and flush. There is
// no transactional rollback: every step is idempotent, so re-running apply
// or flush is the recovery path after a partial failure.
type Reconciler struct {
	set   AddressSet
	chain *BlockChain
	allow *AllowList
	extra *ExtraRules
}

func NewReconciler(ipt IPTables, set AddressSet, cfg *config.Config) *Reconciler {
	return &Reconciler{
		set:   set,
		chain: NewBlockChain(ipt, cfg.General.ChainName),
		allow: NewAllowList(ipt),
		extra: NewExtraRules(ipt, cfg),
	}
}

// BuildReconciler wires a Reconciler against the live kernel.
func BuildReconciler(cfg *config.Config) (*Reconciler, error) {
	ipt, err := NewIPTables()
	if err != nil {
		return nil, err
	}
	return NewReconciler(ipt, BuildIPSet(cfg.General.IPSetName), cfg), nil
}

func (r *Reconciler) AllowList() *AllowList {
	return r.allow
}

// Apply rebuilds the whole deny path from the given ranges:
// replace the address set membership, rebuild the chain and its binding,
// reinstall the default allow rules, append the drop rule, then the extra
// rules. The list has already been fetched and normalized, so every
// failure past this point is a partial-apply condition.
func (r *Reconciler) Apply(prefixes []netip.Prefix) (int, error) {
	if err := r.set.CreateIfNotExists(); err != nil {
		return 0, errdefs.PartialApply(StageAddressSet, err)
	}
	count, err := r.set.BulkReplace(prefixes)
	if err != nil {
		return count, errdefs.PartialApply(StageAddressSet, err)
	}
	log.Infof("Address set %s now holds %d ranges", r.set.Name(), count)

	if err := r.chain.EnsureWithBinding(); err != nil {
		return count, errdefs.PartialApply(StageRuleGroup, err)
	}
	if err := r.chain.FlushMembers(); err != nil {
		return count, errdefs.PartialApply(StageRuleGroup, err)
	}

	if err := r.allow.InstallDefaults(); err != nil {
		return count, errdefs.PartialApply(StageAllowDefaults, err)
	}

	if err := r.chain.AppendMatchSetDrop(r.set.Name()); err != nil {
		return count, errdefs.PartialApply(StageDropRule, err)
	}

	if err := r.extra.AddIfNotExists(); err != nil {
		return count, errdefs.PartialApply(StageExtraRules, err)
	}

	return count, nil
}

// Flush tears down everything apply built: the binding, the chain, and the
// address set. Allow-list rules stay untouched. Every step is a no-op when
// its target is already absent, so flush is safe on a clean system and
// safe to repeat.
func (r *Reconciler) Flush(withExtraRules bool) error {
	chainExists, err := r.chain.Exists()
	if err != nil {
		return errdefs.PartialApply(StageUnbind, err)
	}
	if chainExists {
		if err := r.chain.Unbind(); err != nil {
			return errdefs.PartialApply(StageUnbind, err)
		}
		if err := r.chain.Destroy(); err != nil {
			return errdefs.PartialApply(StageDestroyChain, err)
		}
	} else {
		log.Debugf("Chain %s was never created, skipping teardown", r.chain.Name())
	}

	if withExtraRules {
		if err := r.extra.DelIfExists(); err != nil {
			return errdefs.PartialApply(StageExtraRules, err)
		}
	}

	if err := r.set.Destroy(); err != nil {
		return errdefs.PartialApply(StageDestroySet, err)
	}

	return nil
}

// Status inspects the pieces apply owns without mutating anything.
func (r *Reconciler) Status() (*Status, error) {
	status := &Status{}

	var err error
	if status.IPSetExists, err = r.set.IsExists(); err != nil {
		return nil, err
	}
	if status.ChainExists, err = r.chain.Exists(); err != nil {
		return nil, err
	}
	if status.ChainBound, err = r.chain.IsBound(); err != nil {
		return nil, err
	}
	if status.ChainExists {
		if status.DropRulePresent, err = r.chain.HasMatchSetDrop(r.set.Name()); err != nil {
			return nil, err
		}
	}
	if status.AllowDefaultsPresent, err = r.allow.DefaultsInstalled(); err != nil {
		return nil, err
	}

	return status, nil
}
