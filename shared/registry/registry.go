// Package registry resolves logical service names (ACCOUNTS, LOANS, CARDS) to a
// concrete network address, one instance per call.
package registry

import (
	"context"
	"errors"
	"strings"
)

// ErrNoHealthyInstance is returned when a logical service has no instance that
// can currently take traffic.
var ErrNoHealthyInstance = errors.New("no healthy instance")

// Instance is one addressable replica of a logical service.
type Instance struct {
	Service string
	Address string // host:port, or a full base URL
}

// BaseURL returns the instance address as an http base URL without a trailing slash.
func (i Instance) BaseURL() string {
	addr := strings.TrimRight(i.Address, "/")
	if strings.Contains(addr, "://") {
		return addr
	}
	return "http://" + addr
}

// Resolver picks one instance of a logical service. Implementations must be
// safe for concurrent use.
type Resolver interface {
	Resolve(ctx context.Context, service string) (Instance, error)
}

// normalizeName maps a logical name onto the registry key. Logical names are
// case-insensitive ("ACCOUNTS" and "accounts" are the same service).
func normalizeName(service string) string {
	return strings.ToLower(strings.TrimSpace(service))
}
