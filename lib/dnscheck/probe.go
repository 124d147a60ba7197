// Package dnscheck verifies that DNS resolution still works after the
// block list is applied, i.e. that the priority allow rules actually keep
// port 53 reachable.
package dnscheck

import (
	"fmt"
	"time"

	"github.com/miekg/dns"

	"cdn-blocker/lib/log"
)

// Probe sends an A query for domain to server (host:port) over UDP and
// expects a successful response within timeout.
func Probe(server string, domain string, timeout time.Duration) error {
	client := &dns.Client{Timeout: timeout}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeA)

	resp, rtt, err := client.Exchange(msg, server)
	if err != nil {
		return fmt.Errorf("DNS probe to %s failed: %v", server, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return fmt.Errorf("DNS probe to %s answered %s", server, dns.RcodeToString[resp.Rcode])
	}

	log.Debugf("DNS probe to %s resolved %s in %v (%d answers)", server, domain, rtt, len(resp.Answer))
	return nil
}
