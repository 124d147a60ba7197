package commands

import (
	"errors"
	"flag"

	"cdn-blocker/lib/config"
	"cdn-blocker/lib/errdefs"
	"cdn-blocker/lib/log"
	"cdn-blocker/lib/networking"
)

func CreateFlushCommand() *FlushCommand {
	gc := &FlushCommand{
		fs: flag.NewFlagSet("flush", flag.ExitOnError),
	}

	gc.fs.BoolVar(&gc.WithExtraRules, "with-extra-rules", false, "Also remove the extra rules defined in the configuration")

	return gc
}

type FlushCommand struct {
	fs  *flag.FlagSet
	cfg *config.Config

	WithExtraRules bool
}

func (g *FlushCommand) Name() string {
	return g.fs.Name()
}

func (g *FlushCommand) Init(args []string, ctx *AppContext) error {
	if err := g.fs.Parse(args); err != nil {
		return err
	}

	if cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath); err != nil {
		return err
	} else {
		g.cfg = cfg
	}

	return nil
}

func (g *FlushCommand) Run() error {
	return runFlush(g.cfg, g.WithExtraRules)
}

// runFlush tears down the deny chain, its binding and the address set.
// Allow-list rules are operator-managed and stay in place. Safe to run on
// a system where apply never ran.
func runFlush(cfg *config.Config, withExtraRules bool) error {
	reconciler, err := networking.BuildReconciler(cfg)
	if err != nil {
		return err
	}

	if err := reconciler.Flush(withExtraRules); err != nil {
		if errors.Is(err, errdefs.ErrPartialApply) {
			log.Warnf("The firewall may be in a partial state; re-run flush to reconcile")
		}
		return err
	}

	log.Successf("Removed chain %s and set %s (allow-list rules kept)",
		cfg.General.ChainName, cfg.General.IPSetName)
	return nil
}
