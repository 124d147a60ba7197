package commands

import (
	"errors"
	"flag"

	"cdn-blocker/lib/config"
	"cdn-blocker/lib/errdefs"
	"cdn-blocker/lib/lists"
	"cdn-blocker/lib/log"
	"cdn-blocker/lib/networking"
)

func CreateApplyCommand() *ApplyCommand {
	gc := &ApplyCommand{
		fs: flag.NewFlagSet("apply", flag.ExitOnError),
	}

	gc.fs.BoolVar(&gc.DryRun, "dry-run", false, "Fetch and parse the lists but do not touch the firewall")

	return gc
}

type ApplyCommand struct {
	fs  *flag.FlagSet
	cfg *config.Config

	DryRun bool
}

func (g *ApplyCommand) Name() string {
	return g.fs.Name()
}

func (g *ApplyCommand) Init(args []string, ctx *AppContext) error {
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

func (g *ApplyCommand) Run() error {
	return runApply(g.cfg, g.DryRun)
}

// runApply is the full apply pipeline: fetch and normalize every source
// (no firewall mutation may happen before this succeeds), then rebuild the
// address set, the deny chain and the allow rules. Shared by the apply
// command, the interactive menu and the management API.
func runApply(cfg *config.Config, dryRun bool) error {
	blocklist, err := lists.BuildBlocklist(cfg)
	if err != nil {
		return err
	}

	if blocklist.Skipped() > 0 {
		log.Warnf("%d tokens were skipped as malformed or non-IPv4", blocklist.Skipped())
	}

	if dryRun {
		log.Successf("Dry run: %d ranges would be applied", blocklist.Len())
		return nil
	}

	reconciler, err := networking.BuildReconciler(cfg)
	if err != nil {
		return err
	}

	count, err := reconciler.Apply(blocklist.Prefixes())
	if err != nil {
		if errors.Is(err, errdefs.ErrPartialApply) {
			log.Warnf("The firewall may be in a partial state; re-run apply or flush to reconcile")
		}
		return err
	}

	log.Successf("Blocked %d ranges via set %s, chain %s",
		count, cfg.General.IPSetName, cfg.General.ChainName)
	return nil
}
