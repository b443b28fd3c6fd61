package backend

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Params are the opaque connection parameters of a node.
type Params map[string]string

// Get returns the value for key, or "" when absent.
func (p Params) Get(key string) string {
	return p[key]
}

// Require returns the value for key or an error naming the missing key.
func (p Params) Require(key string) (string, error) {
	v := p[key]
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// Int returns the integer value for key, or def when absent.
func (p Params) Int(key string, def int) (int, error) {
	v := strings.TrimSpace(p[key])
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

// Seconds returns a duration given in whole seconds, or def when absent.
func (p Params) Seconds(key string, def time.Duration) (time.Duration, error) {
	n, err := p.Int(key, -1)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return def, nil
	}
	return time.Duration(n) * time.Second, nil
}

// SplitHostPort splits "host[:port]", falling back to defPort.
// An explicit "port" parameter wins over the port in the address.
func (p Params) SplitHostPort(addrKey string, defPort int) (string, int, error) {
	addr, err := p.Require(addrKey)
	if err != nil {
		return "", 0, err
	}

	host, port := addr, defPort
	if h, ps, err := net.SplitHostPort(addr); err == nil {
		n, err := strconv.Atoi(ps)
		if err != nil {
			return "", 0, fmt.Errorf("invalid port in %q: %w", addr, err)
		}
		host, port = h, n
	}

	if explicit, err := p.Int("port", 0); err != nil {
		return "", 0, err
	} else if explicit > 0 {
		port = explicit
	}
	return host, port, nil
}
