package registry

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	consulapi "github.com/hashicorp/consul/api"
)

type headerRoundTripper struct {
	rt http.RoundTripper
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	return h.rt.RoundTrip(req)
}

// ConsulRegistry resolves a logical name by asking Consul for the passing
// instances of the lower-cased service name and round-robining over them.
type ConsulRegistry struct {
	client   *consulapi.Client
	counters sync.Map // service -> *atomic.Uint64
}

// NewConsulRegistry connects to the Consul agent at addr ("host:port" or a URL).
func NewConsulRegistry(addr string) (*ConsulRegistry, error) {
	cfg := consulapi.DefaultConfig()
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	cfg.Address = addr
	cfg.HttpClient = &http.Client{
		Transport: &headerRoundTripper{rt: http.DefaultTransport},
	}

	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}
	return &ConsulRegistry{client: client}, nil
}

func (r *ConsulRegistry) Resolve(ctx context.Context, service string) (Instance, error) {
	name := normalizeName(service)
	opts := (&consulapi.QueryOptions{}).WithContext(ctx)

	entries, _, err := r.client.Health().Service(name, "", true, opts)
	if err != nil {
		return Instance{}, fmt.Errorf("%w: consul lookup for %s failed: %v", ErrNoHealthyInstance, service, err)
	}

	addrs := make([]string, 0, len(entries))
	for _, e := range entries {
		host := e.Service.Address
		if host == "" {
			host = e.Node.Address
		}
		if host == "" {
			continue
		}
		addrs = append(addrs, host+":"+strconv.Itoa(e.Service.Port))
	}
	if len(addrs) == 0 {
		return Instance{}, fmt.Errorf("%w: consul has no passing instances of %s", ErrNoHealthyInstance, service)
	}

	c, _ := r.counters.LoadOrStore(name, new(atomic.Uint64))
	idx := (c.(*atomic.Uint64).Add(1) - 1) % uint64(len(addrs))
	return Instance{Service: name, Address: addrs[idx]}, nil
}
