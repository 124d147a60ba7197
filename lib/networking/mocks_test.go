package networking

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"
)

// fakeIPTables implements IPTables in memory, close enough to the real
// semantics for sequencing tests: chains hold ordered rule specs, OUTPUT
// pre-exists, Exists on a missing chain reports false.
type fakeIPTables struct {
	chains   map[string][]string // "table/chain" -> ordered joined rule specs
	failures map[string]error    // method name -> injected error
}

func newFakeIPTables() *fakeIPTables {
	return &fakeIPTables{
		chains: map[string][]string{
			"filter/OUTPUT": {},
		},
		failures: map[string]error{},
	}
}

func key(table, chain string) string {
	return table + "/" + chain
}

func joinSpec(rulespec []string) string {
	return strings.Join(rulespec, " ")
}

func (f *fakeIPTables) fail(method string) error {
	return f.failures[method]
}

func (f *fakeIPTables) ChainExists(table, chain string) (bool, error) {
	if err := f.fail("ChainExists"); err != nil {
		return false, err
	}
	_, ok := f.chains[key(table, chain)]
	return ok, nil
}

func (f *fakeIPTables) NewChain(table, chain string) error {
	if err := f.fail("NewChain"); err != nil {
		return err
	}
	k := key(table, chain)
	if _, ok := f.chains[k]; ok {
		return fmt.Errorf("chain %s already exists", chain)
	}
	f.chains[k] = []string{}
	return nil
}

func (f *fakeIPTables) ClearChain(table, chain string) error {
	if err := f.fail("ClearChain"); err != nil {
		return err
	}
	f.chains[key(table, chain)] = []string{}
	return nil
}

func (f *fakeIPTables) DeleteChain(table, chain string) error {
	if err := f.fail("DeleteChain"); err != nil {
		return err
	}
	k := key(table, chain)
	if len(f.chains[k]) > 0 {
		return fmt.Errorf("chain %s is not empty", chain)
	}
	delete(f.chains, k)
	return nil
}

func (f *fakeIPTables) Exists(table, chain string, rulespec ...string) (bool, error) {
	if err := f.fail("Exists"); err != nil {
		return false, err
	}
	rules, ok := f.chains[key(table, chain)]
	if !ok {
		return false, nil
	}
	return slices.Contains(rules, joinSpec(rulespec)), nil
}

func (f *fakeIPTables) Append(table, chain string, rulespec ...string) error {
	if err := f.fail("Append"); err != nil {
		return err
	}
	k := key(table, chain)
	if _, ok := f.chains[k]; !ok {
		return fmt.Errorf("no chain %s in table %s", chain, table)
	}
	f.chains[k] = append(f.chains[k], joinSpec(rulespec))
	return nil
}

func (f *fakeIPTables) Insert(table, chain string, pos int, rulespec ...string) error {
	if err := f.fail("Insert"); err != nil {
		return err
	}
	k := key(table, chain)
	rules, ok := f.chains[k]
	if !ok {
		return fmt.Errorf("no chain %s in table %s", chain, table)
	}
	if pos < 1 || pos > len(rules)+1 {
		return fmt.Errorf("index %d out of range", pos)
	}
	f.chains[k] = slices.Insert(rules, pos-1, joinSpec(rulespec))
	return nil
}

func (f *fakeIPTables) Delete(table, chain string, rulespec ...string) error {
	if err := f.fail("Delete"); err != nil {
		return err
	}
	k := key(table, chain)
	rules := f.chains[k]
	idx := slices.Index(rules, joinSpec(rulespec))
	if idx < 0 {
		return fmt.Errorf("rule not found in %s", chain)
	}
	f.chains[k] = slices.Delete(rules, idx, idx+1)
	return nil
}

func (f *fakeIPTables) outputRules() []string {
	return f.chains["filter/OUTPUT"]
}

// fakeAddressSet implements AddressSet in memory.
type fakeAddressSet struct {
	name        string
	exists      bool
	members     map[netip.Prefix]struct{}
	failReplace error
	failDestroy error
}

func newFakeAddressSet(name string) *fakeAddressSet {
	return &fakeAddressSet{name: name}
}

func (s *fakeAddressSet) Name() string { return s.name }

func (s *fakeAddressSet) CreateIfNotExists() error {
	if !s.exists {
		s.exists = true
		s.members = map[netip.Prefix]struct{}{}
	}
	return nil
}

func (s *fakeAddressSet) IsExists() (bool, error) {
	return s.exists, nil
}

func (s *fakeAddressSet) BulkReplace(prefixes []netip.Prefix) (int, error) {
	if s.failReplace != nil {
		return 0, s.failReplace
	}
	s.members = map[netip.Prefix]struct{}{}
	for _, p := range prefixes {
		s.members[p] = struct{}{}
	}
	return len(s.members), nil
}

func (s *fakeAddressSet) Destroy() error {
	if s.failDestroy != nil {
		return s.failDestroy
	}
	s.exists = false
	s.members = nil
	return nil
}
