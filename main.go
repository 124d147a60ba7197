package main

import (
	"flag"
	"fmt"
	"os"

	"cdn-blocker/lib/commands"
	"cdn-blocker/lib/log"
	"cdn-blocker/lib/networking"
)

func main() {
	ctx := &commands.AppContext{}

	flag.StringVar(&ctx.ConfigPath, "config", "/etc/cdn-blocker/cdn-blocker.conf", "Path to configuration file")
	flag.BoolVar(&ctx.Verbose, "verbose", false, "Enable verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "CDN Outbound Blocker\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [command]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  apply                   Download CDN range lists and install blocking rules\n")
		fmt.Fprintf(os.Stderr, "  flush                   Remove all blocking rules (allow-list rules are kept)\n")
		fmt.Fprintf(os.Stderr, "  allow-port <port>       Insert priority accept rules for a TCP port\n")
		fmt.Fprintf(os.Stderr, "  self-check              Inspect firewall state and probe DNS\n")
		fmt.Fprintf(os.Stderr, "  server                  Run the local management API\n")
		fmt.Fprintf(os.Stderr, "\nWithout a command an interactive menu is started.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	log.SetVerbose(ctx.Verbose)

	// Privilege gate comes before everything else.
	if err := commands.CheckPrivilege(); err != nil {
		log.Fatalf("%v", err)
	}
	if err := commands.EnsureDependencies(os.Stdin); err != nil {
		log.Fatalf("%v", err)
	}

	var err error
	if ctx.Interfaces, err = networking.GetInterfaceList(); err != nil {
		log.Fatalf("Failed to get interfaces list: %v", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		if err := commands.RunMenu(ctx); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	cmds := []commands.Runner{
		commands.CreateApplyCommand(),
		commands.CreateFlushCommand(),
		commands.CreateAllowPortCommand(),
		commands.CreateSelfCheckCommand(),
		commands.CreateServerCommand(),
	}

	subcommand := args[0]
	for _, cmd := range cmds {
		if cmd.Name() != subcommand {
			continue
		}
		if err := cmd.Init(args[1:], ctx); err != nil {
			log.Fatalf("%v", err)
		}
		if err := cmd.Run(); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	log.Errorf("Unknown command: %s", subcommand)
	flag.Usage()
	os.Exit(1)
}
