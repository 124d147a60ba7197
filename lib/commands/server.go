package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cdn-blocker/lib/api"
	"cdn-blocker/lib/config"
	"cdn-blocker/lib/log"
)

// CreateServerCommand creates a new server command
func CreateServerCommand() *ServerCommand {
	cmd := &ServerCommand{
		fs: flag.NewFlagSet("server", flag.ExitOnError),
	}

	cmd.fs.StringVar(&cmd.bindAddr, "bind", "", "Bind address for the management API (defaults to api_bind from the configuration)")

	return cmd
}

// ServerCommand runs the local management API.
type ServerCommand struct {
	fs       *flag.FlagSet
	ctx      *AppContext
	cfg      *config.Config
	bindAddr string
}

func (c *ServerCommand) Name() string {
	return c.fs.Name()
}

func (c *ServerCommand) Init(args []string, ctx *AppContext) error {
	c.ctx = ctx

	if err := c.fs.Parse(args); err != nil {
		return err
	}

	if cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath); err != nil {
		return err
	} else {
		c.cfg = cfg
	}

	if c.bindAddr == "" {
		c.bindAddr = c.cfg.General.APIBind
	}

	return nil
}

func (c *ServerCommand) Run() error {
	server := api.NewServer(c.cfg, c.bindAddr, c.ctx.Interfaces)

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Management API listening on %s", c.bindAddr)
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %v", err)
	case sig := <-sigCh:
		log.Infof("Received %v, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
