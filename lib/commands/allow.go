package commands

import (
	"flag"
	"fmt"

	"cdn-blocker/lib/config"
	"cdn-blocker/lib/log"
	"cdn-blocker/lib/networking"
	"cdn-blocker/lib/utils"
)

func CreateAllowPortCommand() *AllowPortCommand {
	gc := &AllowPortCommand{
		fs: flag.NewFlagSet("allow-port", flag.ExitOnError),
	}
	return gc
}

type AllowPortCommand struct {
	fs   *flag.FlagSet
	cfg  *config.Config
	port string
}

func (g *AllowPortCommand) Name() string {
	return g.fs.Name()
}

func (g *AllowPortCommand) Init(args []string, ctx *AppContext) error {
	if err := g.fs.Parse(args); err != nil {
		return err
	}

	if g.fs.NArg() != 1 {
		return fmt.Errorf("usage: allow-port <port>")
	}
	g.port = g.fs.Arg(0)

	if cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath); err != nil {
		return err
	} else {
		g.cfg = cfg
	}

	return nil
}

func (g *AllowPortCommand) Run() error {
	return runAllowPort(g.cfg, g.port)
}

// runAllowPort validates the port before anything else; invalid input
// never reaches the firewall.
func runAllowPort(cfg *config.Config, portStr string) error {
	port, err := utils.ParsePort(portStr)
	if err != nil {
		return err
	}

	reconciler, err := networking.BuildReconciler(cfg)
	if err != nil {
		return err
	}

	if err := reconciler.AllowList().AllowPort(port); err != nil {
		return err
	}

	log.Successf("Port %d allow-listed; it survives apply and flush cycles", port)
	return nil
}
