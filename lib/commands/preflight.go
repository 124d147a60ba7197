package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"cdn-blocker/lib/errdefs"
	"cdn-blocker/lib/log"
)

// requiredTools must be present before any firewall mutation is attempted.
var requiredTools = []string{"ipset", "iptables"}

// CheckPrivilege verifies the process can mutate firewall state. Runs
// before anything else; failure is fatal at startup.
func CheckPrivilege() error {
	if unix.Geteuid() != 0 {
		return fmt.Errorf("%w: run this tool as root", errdefs.ErrPrivilegeMissing)
	}
	return nil
}

// MissingTools returns the required external tools absent from PATH.
func MissingTools() []string {
	var missing []string
	for _, tool := range requiredTools {
		if _, err := exec.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	return missing
}

// EnsureDependencies checks for the required external tools and, when some
// are missing, offers to install them through the system package manager.
// Declining the offer or a failed installation is fatal.
func EnsureDependencies(in io.Reader) error {
	missing := MissingTools()
	if len(missing) == 0 {
		return nil
	}

	log.Warnf("Missing required tools: %s", strings.Join(missing, ", "))
	fmt.Printf("Install them now via the system package manager? [y/N]: ")

	if !readYes(in) {
		return fmt.Errorf("%w: %s (installation declined)", errdefs.ErrDependencyMissing, strings.Join(missing, ", "))
	}

	if err := installPackages(missing); err != nil {
		return fmt.Errorf("%w: installation failed: %v", errdefs.ErrDependencyMissing, err)
	}

	if still := MissingTools(); len(still) > 0 {
		return fmt.Errorf("%w: %s still absent after installation", errdefs.ErrDependencyMissing, strings.Join(still, ", "))
	}

	log.Successf("All required tools are now installed")
	return nil
}

func readYes(in io.Reader) bool {
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

func installPackages(packages []string) error {
	var installCmd []string
	switch {
	case commandAvailable("opkg"):
		installCmd = []string{"opkg", "install"}
	case commandAvailable("apt-get"):
		installCmd = []string{"apt-get", "install", "-y"}
	default:
		return fmt.Errorf("no supported package manager found (opkg, apt-get)")
	}

	args := append(installCmd[1:], packages...)
	cmd := exec.Command(installCmd[0], args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
