package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"cdn-blocker/lib/config"
	"cdn-blocker/lib/log"
)

// menuActions decouples the menu loop from the live firewall for tests.
type menuActions struct {
	apply     func() error
	flush     func() error
	allowPort func(port string) error
}

// RunMenu drives the interactive operator menu: apply, flush, allow-port,
// exit. Failures are reported and the menu continues; retry is always
// operator-initiated.
func RunMenu(ctx *AppContext) error {
	cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath)
	if err != nil {
		return err
	}

	return runMenuLoop(os.Stdin, os.Stdout, menuActions{
		apply:     func() error { return runApply(cfg, false) },
		flush:     func() error { return runFlush(cfg, false) },
		allowPort: func(port string) error { return runAllowPort(cfg, port) },
	}, cfg)
}

func runMenuLoop(in io.Reader, out io.Writer, actions menuActions, cfg *config.Config) error {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprintf(out, "\nCDN blocker (set %s, chain %s)\n", cfg.General.IPSetName, cfg.General.ChainName)
		fmt.Fprintln(out, "  1) apply      - download lists and block the ranges")
		fmt.Fprintln(out, "  2) flush      - remove all blocking rules")
		fmt.Fprintln(out, "  3) allow-port - allow-list an extra port")
		fmt.Fprintln(out, "  4) exit")
		fmt.Fprint(out, "> ")

		if !scanner.Scan() {
			return nil
		}

		var err error
		switch strings.TrimSpace(scanner.Text()) {
		case "1", "apply":
			err = actions.apply()
		case "2", "flush":
			err = actions.flush()
		case "3", "allow-port":
			fmt.Fprint(out, "Port to allow: ")
			if !scanner.Scan() {
				return nil
			}
			err = actions.allowPort(strings.TrimSpace(scanner.Text()))
		case "4", "exit", "quit", "q":
			return nil
		case "":
			continue
		default:
			log.Warnf("Unknown choice %q", strings.TrimSpace(scanner.Text()))
			continue
		}

		if err != nil {
			log.Errorf("Operation failed: %v", err)
		}
	}
}
