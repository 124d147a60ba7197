package dnscheck

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"
)

func startTestResolver(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	srv := &dns.Server{PacketConn: pc, Handler: handler}
	go srv.ActivateAndServe()
	t.Cleanup(func() { srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestProbe_Success(t *testing.T) {
	addr := startTestResolver(t, func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		rr, _ := dns.NewRR(r.Question[0].Name + " 60 IN A 192.0.2.10")
		m.Answer = append(m.Answer, rr)
		w.WriteMsg(m)
	})

	if err := Probe(addr, "example.com.", 2*time.Second); err != nil {
		t.Errorf("Probe() error = %v", err)
	}
}

func TestProbe_ServerFailureRcode(t *testing.T) {
	addr := startTestResolver(t, func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetRcode(r, dns.RcodeServerFailure)
		w.WriteMsg(m)
	})

	err := Probe(addr, "example.com.", 2*time.Second)
	if err == nil {
		t.Fatal("expected error for SERVFAIL response")
	}
	if !strings.Contains(err.Error(), "SERVFAIL") {
		t.Errorf("error %q does not mention SERVFAIL", err)
	}
}

func TestProbe_Timeout(t *testing.T) {
	// Resolver that swallows queries: the probe must give up on its own.
	addr := startTestResolver(t, func(w dns.ResponseWriter, r *dns.Msg) {})

	if err := Probe(addr, "example.com.", 300*time.Millisecond); err == nil {
		t.Error("expected timeout error from silent resolver")
	}
}
