package lists

import (
	"bufio"
	"net/netip"
	"strings"

	"cdn-blocker/lib/log"
)

// Blocklist is the normalized result of one or more fetched sources:
// a deduplicated list of IPv4 prefixes plus a count of rejected tokens.
type Blocklist struct {
	prefixes []netip.Prefix
	seen     map[netip.Prefix]struct{}
	skipped  int
}

func (b *Blocklist) Prefixes() []netip.Prefix { return b.prefixes }
func (b *Blocklist) Len() int                 { return len(b.prefixes) }
func (b *Blocklist) Skipped() int             { return b.skipped }

func (b *Blocklist) append(prefixes []netip.Prefix, skipped int) {
	if b.seen == nil {
		b.seen = make(map[netip.Prefix]struct{})
	}
	for _, p := range prefixes {
		if _, dup := b.seen[p]; dup {
			continue
		}
		b.seen[p] = struct{}{}
		b.prefixes = append(b.prefixes, p)
	}
	b.skipped += skipped
}

// Normalize extracts valid IPv4 prefixes from raw list text. Blank lines and
// comments are ignored silently; candidate tokens must contain a dot (cheap
// IPv4 heuristic) and then survive a real parse. A bare address becomes a
// /32. Malformed tokens and IPv6 entries are skipped and counted, never
// fatal.
func Normalize(raw string) ([]netip.Prefix, int) {
	var prefixes []netip.Prefix
	skipped := 0

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		// Only the first field matters; trailing comments are common.
		token := strings.Fields(line)[0]
		if !strings.Contains(token, ".") {
			skipped++
			continue
		}

		prefix, ok := parsePrefix(token)
		if !ok {
			log.Debugf("Could not parse token, skipping: %s", token)
			skipped++
			continue
		}
		prefixes = append(prefixes, prefix)
	}

	return prefixes, skipped
}

func parsePrefix(token string) (netip.Prefix, bool) {
	if !strings.Contains(token, "/") {
		token = token + "/32"
	}

	prefix, err := netip.ParsePrefix(token)
	if err != nil || !prefix.IsValid() {
		return netip.Prefix{}, false
	}
	if !prefix.Addr().Is4() {
		return netip.Prefix{}, false
	}
	return prefix.Masked(), true
}
