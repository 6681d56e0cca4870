package util

import (
	"fmt"
	"net"
	"strings"
)

// ValidatePort validates a TCP port number.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", port)
	}
	return nil
}

// ValidateIPAddress validates an IPv4 or IPv6 address. The unspecified
// addresses 0.0.0.0 and :: are allowed for binding all interfaces.
func ValidateIPAddress(ip string) error {
	if ip == "" {
		return fmt.Errorf("IP address cannot be empty")
	}
	if net.ParseIP(ip) == nil {
		return fmt.Errorf("invalid IP address: %s", ip)
	}
	return nil
}

// ValidateHostname validates a hostname or IP address usable as a dial
// target.
func ValidateHostname(hostname string) error {
	if hostname == "" {
		return fmt.Errorf("hostname cannot be empty")
	}
	if net.ParseIP(hostname) != nil {
		return nil
	}
	if len(hostname) > 253 {
		return fmt.Errorf("hostname too long: %d characters (max 253)", len(hostname))
	}

	for _, label := range strings.Split(hostname, ".") {
		if label == "" {
			return fmt.Errorf("hostname has empty label")
		}
		if len(label) > 63 {
			return fmt.Errorf("hostname label too long: %d characters (max 63)", len(label))
		}
		for i, c := range label {
			if !isValidHostnameChar(c, i == 0, i == len(label)-1) {
				return fmt.Errorf("invalid character in hostname: %c", c)
			}
		}
	}

	return nil
}

func isValidHostnameChar(c rune, isFirst, isLast bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-':
		return !isFirst && !isLast
	default:
		return false
	}
}
