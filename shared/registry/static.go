package registry

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
)

// HealthStatus reports whether an address may receive traffic.
type HealthStatus interface {
	Eligible(addr string) bool
}

type pool struct {
	instances []Instance
	next      atomic.Uint64
}

// StaticRegistry round-robins over a fixed set of instances per service. The
// pools are built once and never mutated, so Resolve needs no locking.
type StaticRegistry struct {
	pools  map[string]*pool
	health HealthStatus
}

// NewStaticRegistry builds a registry from service name -> addresses.
func NewStaticRegistry(instances map[string][]string) *StaticRegistry {
	r := &StaticRegistry{pools: make(map[string]*pool, len(instances))}
	for name, addrs := range instances {
		key := normalizeName(name)
		p := &pool{}
		for _, addr := range addrs {
			p.instances = append(p.instances, Instance{Service: key, Address: addr})
		}
		r.pools[key] = p
	}
	return r
}

// SetHealthStatus makes Resolve skip addresses the status reports as ineligible.
// Must be called before the registry is shared.
func (r *StaticRegistry) SetHealthStatus(h HealthStatus) {
	r.health = h
}

func (r *StaticRegistry) Resolve(ctx context.Context, service string) (Instance, error) {
	if err := ctx.Err(); err != nil {
		return Instance{}, err
	}
	p, ok := r.pools[normalizeName(service)]
	if !ok || len(p.instances) == 0 {
		return Instance{}, fmt.Errorf("%w: %s has no registered instances", ErrNoHealthyInstance, service)
	}

	n := uint64(len(p.instances))
	start := p.next.Add(1) - 1
	for i := uint64(0); i < n; i++ {
		inst := p.instances[(start+i)%n]
		if r.health == nil || r.health.Eligible(inst.Address) {
			return inst, nil
		}
	}
	return Instance{}, fmt.Errorf("%w: all %d instances of %s are unhealthy", ErrNoHealthyInstance, n, service)
}

// Instances lists every registered instance in a stable order.
func (r *StaticRegistry) Instances() []Instance {
	names := make([]string, 0, len(r.pools))
	for name := range r.pools {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Instance
	for _, name := range names {
		out = append(out, r.pools[name].instances...)
	}
	return out
}
