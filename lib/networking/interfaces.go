package networking

import (
	"net"

	"github.com/vishvananda/netlink"
)

type Interface struct {
	netlink.Link
}

// InterfaceSummary is the status-report shape of one link.
type InterfaceSummary struct {
	Name  string   `json:"name"`
	Up    bool     `json:"up"`
	Addrs []string `json:"addrs,omitempty"`
}

func GetInterfaceList() ([]Interface, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, err
	}
	var interfaces []Interface
	for _, link := range links {
		interfaces = append(interfaces, Interface{link})
	}
	return interfaces, nil
}

// SummarizeInterfaces collects name, oper-state and addresses for every
// link, for the self-check report and the status API.
func SummarizeInterfaces(ifaces []Interface) []InterfaceSummary {
	summaries := make([]InterfaceSummary, 0, len(ifaces))
	for _, iface := range ifaces {
		attrs := iface.Attrs()
		summary := InterfaceSummary{
			Name: attrs.Name,
			Up:   attrs.Flags&net.FlagUp != 0,
		}

		if addrs, err := netlink.AddrList(iface, netlink.FAMILY_V4); err == nil {
			for _, addr := range addrs {
				summary.Addrs = append(summary.Addrs, addr.IPNet.String())
			}
		}

		summaries = append(summaries, summary)
	}
	return summaries
}
