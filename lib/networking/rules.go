package networking

import (
	"strings"

	"github.com/valyala/fasttemplate"

	"cdn-blocker/lib/config"
	"cdn-blocker/lib/log"
)

// RenderedRule is an extra operator-defined rule with its placeholders
// resolved.
type RenderedRule struct {
	Table string
	Chain string
	Spec  []string
}

// ExtraRules renders and applies the operator-defined rule specs from the
// configuration. Specs may reference {{ipset_name}} and {{chain_name}}.
type ExtraRules struct {
	ipt   IPTables
	rules []*RenderedRule
}

func NewExtraRules(ipt IPTables, cfg *config.Config) *ExtraRules {
	vars := map[string]interface{}{
		config.RULE_TMPL_IPSET: cfg.General.IPSetName,
		config.RULE_TMPL_CHAIN: cfg.General.ChainName,
	}

	rules := make([]*RenderedRule, 0, len(cfg.ExtraRules))
	for _, rule := range cfg.ExtraRules {
		spec := make([]string, len(rule.Rule))
		for i, part := range rule.Rule {
			spec[i] = renderRulePart(part, vars)
		}
		rules = append(rules, &RenderedRule{
			Table: renderRulePart(rule.Table, vars),
			Chain: renderRulePart(rule.Chain, vars),
			Spec:  spec,
		})
	}

	return &ExtraRules{ipt: ipt, rules: rules}
}

func renderRulePart(template string, vars map[string]interface{}) string {
	if !strings.Contains(template, "{{") {
		return template
	}

	t := fasttemplate.New(template, "{{", "}}")
	return t.ExecuteString(vars)
}

func (e *ExtraRules) Rules() []*RenderedRule {
	return e.rules
}

// AddIfNotExists appends every extra rule that is not already present.
func (e *ExtraRules) AddIfNotExists() error {
	for _, rule := range e.rules {
		exists, err := e.ipt.Exists(rule.Table, rule.Chain, rule.Spec...)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		log.Infof("Adding extra rule [%v %v %v]", rule.Table, rule.Chain, rule.Spec)
		if err := e.ipt.Append(rule.Table, rule.Chain, rule.Spec...); err != nil {
			return err
		}
	}
	return nil
}

// DelIfExists removes every extra rule that is present.
func (e *ExtraRules) DelIfExists() error {
	for _, rule := range e.rules {
		exists, err := e.ipt.Exists(rule.Table, rule.Chain, rule.Spec...)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}

		log.Infof("Deleting extra rule [%v %v %v]", rule.Table, rule.Chain, rule.Spec)
		if err := e.ipt.Delete(rule.Table, rule.Chain, rule.Spec...); err != nil {
			return err
		}
	}
	return nil
}
