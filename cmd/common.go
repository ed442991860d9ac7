package cmd

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/LanXuage/astrascan/common/ports"
	"github.com/google/gopacket/layers"
)

// MIN_PREFIX_BITS caps a CIDR argument at 65536 addresses.
const MIN_PREFIX_BITS = 16

// ParseAddr expands a host argument into address literals. It accepts an
// address, a last-octet range such as "192.168.1.1-28", a CIDR prefix or a
// resolvable name.
func ParseAddr(s string) ([]string, error) {
	if ip, err := netip.ParseAddr(s); err == nil {
		return []string{ip.String()}, nil
	}
	if prefix, err := netip.ParsePrefix(s); err == nil {
		if !prefix.Addr().Is4() || prefix.Bits() < MIN_PREFIX_BITS {
			return nil, fmt.Errorf("unsupported CIDR: %s (IPv4 /%d or longer only)", s, MIN_PREFIX_BITS)
		}
		ret := make([]string, 0, 1<<(32-prefix.Bits()))
		for ip := prefix.Masked().Addr(); prefix.Contains(ip); ip = ip.Next() {
			ret = append(ret, ip.String())
		}
		return ret, nil
	}
	if i := strings.IndexByte(s, '-'); i != -1 {
		ip, err := netip.ParseAddr(s[:i])
		if err == nil && ip.Is4() {
			end, err := strconv.ParseUint(s[i+1:], 10, 8)
			start := ip.As4()[3]
			if err == nil && uint8(end) >= start {
				ret := []string{ip.String()}
				for ; start < uint8(end); start++ {
					ip = ip.Next()
					ret = append(ret, ip.String())
				}
				return ret, nil
			}
		}
		return nil, fmt.Errorf("unsupported IP format: %s", s)
	}
	ips, err := net.LookupIP(s)
	if err != nil {
		return nil, fmt.Errorf("unsupported IP format: %s", s)
	}
	ret := []string{}
	for _, ip := range ips {
		if ipv4 := ip.To4(); ipv4 != nil {
			ret = append(ret, ipv4.String())
		}
	}
	return ret, nil
}

// ParsePorts expands every "8000" or "8000-8010" spec, keeping the first
// occurrence of each port.
func ParsePorts(specs []string) ([]layers.TCPPort, error) {
	seen := map[layers.TCPPort]bool{}
	ret := []layers.TCPPort{}
	for _, spec := range specs {
		for _, part := range strings.Split(spec, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			tmp, err := ports.ParseSpec(part)
			if err != nil {
				return nil, err
			}
			for _, p := range tmp {
				if !seen[p] {
					seen[p] = true
					ret = append(ret, p)
				}
			}
		}
	}
	return ret, nil
}
