package discovery

import (
	"fmt"
	"net"
)

// maxScanBits caps how many host bits one scan may cover (2^16
// addresses), so a typo like /8 — or an IPv6 /64 — cannot flood the
// network. The cap is checked on the prefix width, never by shifting,
// which would overflow for wide IPv6 prefixes.
const maxScanBits = 16

// expandCIDR generates every host address in a CIDR range, skipping the
// network and broadcast addresses for IPv4. /31 and /32 have no
// distinct network or broadcast address, so every address in them is a
// host.
func expandCIDR(cidr string) ([]string, error) {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCIDR, cidr)
	}

	ones, bits := ipnet.Mask.Size()
	if bits-ones > maxScanBits {
		return nil, fmt.Errorf("%w: %q has 2^%d addresses", ErrRangeTooBig, cidr, bits-ones)
	}

	skipEdges := ip.To4() != nil && ones < 31

	var ips []string

	for i := ip.Mask(ipnet.Mask); ipnet.Contains(i); inc(i) {
		if skipEdges && isFirstOrLastAddress(i, ipnet) {
			continue
		}

		ips = append(ips, i.String())
	}

	return ips, nil
}

// inc increments an IP address in place.
func inc(ip net.IP) {
	for j := len(ip) - 1; j >= 0; j-- {
		ip[j]++

		if ip[j] > 0 {
			break
		}
	}
}

// isFirstOrLastAddress checks if the IP is the network or broadcast address.
func isFirstOrLastAddress(ip net.IP, network *net.IPNet) bool {
	ipv4 := ip.To4()
	if ipv4 == nil {
		return false
	}

	if ipv4.Equal(ip.Mask(network.Mask)) {
		return true
	}

	broadcast := make(net.IP, len(ipv4))
	for i := range ipv4 {
		broadcast[i] = ipv4[i] | ^network.Mask[i]
	}

	return ipv4.Equal(broadcast)
}
