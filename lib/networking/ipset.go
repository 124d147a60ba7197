package networking

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os/exec"
	"sync"

	"cdn-blocker/lib/log"
)

const ipsetCommand = "ipset"

// AddressSet is a named kernel-level collection of IPv4 ranges with
// efficient membership matching. The drop rule references it by name, so
// chain length stays constant regardless of list size.
type AddressSet interface {
	Name() string
	CreateIfNotExists() error
	IsExists() (bool, error)
	BulkReplace(prefixes []netip.Prefix) (int, error)
	Destroy() error
}

// IPSet drives the ipset utility. All membership changes go through a
// single `ipset restore` subprocess rather than one invocation per entry.
type IPSet struct {
	name string
}

type IPSetWriter struct {
	ipset  *IPSet
	cmd    *exec.Cmd
	stdin  *bufio.Writer
	pipe   *io.WriteCloser
	mutex  sync.Mutex
	errors chan error
	closed bool
}

func BuildIPSet(name string) *IPSet {
	return &IPSet{name: name}
}

func (ipset *IPSet) Name() string {
	return ipset.name
}

func (ipset *IPSet) String() string {
	return fmt.Sprintf("ipset %s", ipset.name)
}

func (ipset *IPSet) CheckExecutable() error {
	if _, err := exec.LookPath(ipsetCommand); err != nil {
		return fmt.Errorf("failed to find ipset command: %v", err)
	}
	return nil
}

func (ipset *IPSet) CreateIfNotExists() error {
	if err := ipset.CheckExecutable(); err != nil {
		return err
	}

	cmd := exec.Command(ipsetCommand, "create", ipset.name, "hash:net", "family", "inet", "-exist")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to create ipset [%s]: %v", ipset, err)
	}

	return nil
}

func (ipset *IPSet) IsExists() (bool, error) {
	if err := ipset.CheckExecutable(); err != nil {
		return false, err
	}

	cmd := exec.Command(ipsetCommand, "-n", "list", ipset.name)
	if err := cmd.Start(); err != nil {
		return false, err
	}

	if err := cmd.Wait(); err != nil {
		if exiterr, ok := err.(*exec.ExitError); ok {
			return exiterr.ExitCode() == 0, nil
		} else {
			return false, err
		}
	} else {
		return true, nil
	}
}

// Destroy removes the set entirely. A set that never existed is not an
// error: flush must be safe to run on a clean system.
func (ipset *IPSet) Destroy() error {
	if err := ipset.CheckExecutable(); err != nil {
		return err
	}

	if exists, err := ipset.IsExists(); err != nil {
		return err
	} else if !exists {
		log.Debugf("ipset %s does not exist, nothing to destroy", ipset.name)
		return nil
	}

	cmd := exec.Command(ipsetCommand, "destroy", ipset.name)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to destroy ipset %s: %v\n%s", ipset.name, err, output)
	}
	return nil
}

// BulkReplace atomically replaces the whole membership: a flush directive
// followed by every add is submitted as one restore batch, so rules
// referencing the set never observe a partially-populated state. Invalid
// prefixes are skipped and counted by the caller's normalizer; anything
// reaching here is written as-is.
func (ipset *IPSet) BulkReplace(prefixes []netip.Prefix) (int, error) {
	writer, err := ipset.OpenWriter()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, prefix := range prefixes {
		if err := writer.Add(prefix); err != nil {
			writer.Close()
			return count, err
		}
		count++
	}

	if err := writer.Close(); err != nil {
		return count, err
	}
	return count, nil
}

// OpenWriter starts a single `ipset restore` subprocess and returns a
// writer streaming directives into it. The first directive flushes the set
// so that Close commits a full replacement in one batch.
func (ipset *IPSet) OpenWriter() (*IPSetWriter, error) {
	if err := ipset.CheckExecutable(); err != nil {
		return nil, err
	}

	cmd := exec.Command(ipsetCommand, "restore", "-exist")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %v", err)
	}

	writer := &IPSetWriter{
		ipset:  ipset,
		cmd:    cmd,
		stdin:  bufio.NewWriter(stdin),
		pipe:   &stdin,
		errors: make(chan error),
	}

	go func() {
		defer close(writer.errors)
		if err := cmd.Run(); err != nil {
			writer.errors <- fmt.Errorf("ipset restore failed: %v", err)
		}
	}()

	if _, err := writer.stdin.WriteString(fmt.Sprintf("flush %s\n", ipset.name)); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write flush directive: %v", err)
	}

	return writer, nil
}

// Add writes an add directive for one network to the batch.
func (w *IPSetWriter) Add(network netip.Prefix) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return errors.New("cannot add to closed writer")
	}

	if !network.IsValid() {
		log.Warnf("Skipping invalid network: %v", network)
		return nil
	}

	if _, err := w.stdin.WriteString(fmt.Sprintf("add %s %s\n", w.ipset.name, network.String())); err != nil {
		return fmt.Errorf("failed to write to ipset: %v", err)
	}
	return nil
}

// Close flushes the buffer, closes the pipe, and waits for the command to
// complete.
func (w *IPSetWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return errors.New("writer already closed")
	}
	w.closed = true

	if err := w.stdin.Flush(); err != nil {
		return fmt.Errorf("failed to flush stdin: %v", err)
	}

	if err := (*w.pipe).Close(); err != nil {
		return fmt.Errorf("failed to close stdin pipe: %v", err)
	}

	for err := range w.errors {
		if err != nil {
			return err
		}
	}

	return nil
}
