package commands

import (
	"flag"
	"os"
	"time"

	"cdn-blocker/lib/config"
	"cdn-blocker/lib/dnscheck"
	"cdn-blocker/lib/log"
	"cdn-blocker/lib/networking"
)

func CreateSelfCheckCommand() *SelfCheckCommand {
	gc := &SelfCheckCommand{
		fs: flag.NewFlagSet("self-check", flag.ExitOnError),
	}
	return gc
}

type SelfCheckCommand struct {
	fs  *flag.FlagSet
	ctx *AppContext
	cfg *config.Config
}

func (g *SelfCheckCommand) Name() string {
	return g.fs.Name()
}

func (g *SelfCheckCommand) Init(args []string, ctx *AppContext) error {
	g.ctx = ctx

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

func (g *SelfCheckCommand) Run() error {
	log.Infof("Running self-check...")
	log.Infof("---------------- Configuration START -----------------")

	if cfg, err := g.cfg.SerializeConfig(); err != nil {
		log.Errorf("Failed to serialize config: %v", err)
		return err
	} else {
		os.Stdout.Write(cfg.Bytes())
	}

	log.Infof("----------------- Configuration END ------------------")

	if missing := MissingTools(); len(missing) > 0 {
		log.Errorf("Missing required tools: %v", missing)
	} else {
		log.Infof("All required tools are present")
	}

	reconciler, err := networking.BuildReconciler(g.cfg)
	if err != nil {
		log.Errorf("Failed to open iptables: %v", err)
		return err
	}

	status, err := reconciler.Status()
	if err != nil {
		log.Errorf("Failed to inspect firewall state: %v", err)
		return err
	}

	reportPresence("ipset "+g.cfg.General.IPSetName, status.IPSetExists)
	reportPresence("chain "+g.cfg.General.ChainName, status.ChainExists)
	reportPresence("OUTPUT binding", status.ChainBound)
	reportPresence("drop rule", status.DropRulePresent)
	reportPresence("default allow rules", status.AllowDefaultsPresent)

	log.Infof("----------------- Interfaces ------------------")
	for _, iface := range networking.SummarizeInterfaces(g.ctx.Interfaces) {
		state := "DOWN"
		if iface.Up {
			state = "UP"
		}
		log.Infof("  %s (%s) %v", iface.Name, state, iface.Addrs)
	}

	if g.cfg.General.DNSProbeServer != "" {
		log.Infof("Probing DNS through %s...", g.cfg.General.DNSProbeServer)
		if err := dnscheck.Probe(g.cfg.General.DNSProbeServer, g.cfg.General.DNSProbeDomain, 5*time.Second); err != nil {
			log.Errorf("DNS probe failed (allow rules may not be effective): %v", err)
		} else {
			log.Infof("DNS resolution works")
		}
	}

	log.Successf("Self-check completed")
	return nil
}

func reportPresence(what string, present bool) {
	if present {
		log.Infof("%s is present", what)
	} else {
		log.Warnf("%s is NOT present", what)
	}
}
