package registry

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/eaglebank/digibank/shared/logger"
)

const (
	StatusUnknown   = "unknown"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// InstanceHealth tracks the probe history of one instance address.
type InstanceHealth struct {
	LastCheck        time.Time
	LastHealthy      time.Time
	Address          string
	Status           string
	ConsecutiveFails int
}

// HealthMonitor probes the /health endpoint of every static instance on an
// interval. An instance becomes ineligible after maxFailures consecutive failed
// probes and eligible again after one successful probe. Instances that have not
// been probed yet are eligible.
type HealthMonitor struct {
	instances   map[string]*InstanceHealth
	httpClient  *http.Client
	checkFunc   func(ctx context.Context, addr string) error
	log         *logger.Logger
	interval    time.Duration
	mu          sync.RWMutex
	maxFailures int
}

// NewHealthMonitor creates a monitor. Zero values fall back to a 10s interval,
// 2s probe timeout and 3 failures.
func NewHealthMonitor(log *logger.Logger, interval, timeout time.Duration, maxFailures int) *HealthMonitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if maxFailures <= 0 {
		maxFailures = 3
	}
	h := &HealthMonitor{
		instances:   make(map[string]*InstanceHealth),
		httpClient:  &http.Client{Timeout: timeout},
		log:         log.With("component", "HealthMonitor"),
		interval:    interval,
		maxFailures: maxFailures,
	}
	h.checkFunc = h.defaultHealthCheck
	return h
}

// SetCheckFunction overrides the HTTP probe. Must be called before Start.
func (h *HealthMonitor) SetCheckFunction(fn func(ctx context.Context, addr string) error) {
	h.checkFunc = fn
}

// Start probes all instances immediately and then on every tick until ctx is done.
func (h *HealthMonitor) Start(ctx context.Context, provider func() []Instance) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.log.Info("health monitor started", "interval", h.interval)
	h.CheckAll(ctx, provider())
	for {
		select {
		case <-ticker.C:
			h.CheckAll(ctx, provider())
		case <-ctx.Done():
			h.log.Info("health monitor stopping")
			return
		}
	}
}

// CheckAll probes each instance once and forgets instances no longer listed.
func (h *HealthMonitor) CheckAll(ctx context.Context, instances []Instance) {
	current := make(map[string]bool, len(instances))
	for _, inst := range instances {
		current[inst.Address] = true
		h.check(ctx, inst)
	}

	h.mu.Lock()
	for addr := range h.instances {
		if !current[addr] {
			delete(h.instances, addr)
		}
	}
	h.mu.Unlock()
}

func (h *HealthMonitor) check(ctx context.Context, inst Instance) {
	h.mu.Lock()
	health, ok := h.instances[inst.Address]
	if !ok {
		health = &InstanceHealth{Address: inst.Address, Status: StatusUnknown}
		h.instances[inst.Address] = health
	}
	h.mu.Unlock()

	err := h.checkFunc(ctx, inst.BaseURL())

	h.mu.Lock()
	defer h.mu.Unlock()
	health.LastCheck = time.Now()

	if err != nil {
		health.ConsecutiveFails++
		h.log.Warn("health check failed",
			"service", inst.Service, "address", inst.Address,
			"attempt", health.ConsecutiveFails, "max", h.maxFailures, "error", err)
		if health.ConsecutiveFails >= h.maxFailures && health.Status != StatusUnhealthy {
			health.Status = StatusUnhealthy
			h.log.Warn("instance marked unhealthy", "service", inst.Service, "address", inst.Address)
		}
		return
	}

	if health.Status == StatusUnhealthy {
		h.log.Info("instance recovered", "service", inst.Service, "address", inst.Address)
	}
	health.Status = StatusHealthy
	health.ConsecutiveFails = 0
	health.LastHealthy = health.LastCheck
}

func (h *HealthMonitor) defaultHealthCheck(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// Eligible implements HealthStatus.
func (h *HealthMonitor) Eligible(addr string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, ok := h.instances[addr]
	if !ok {
		return true
	}
	return health.Status != StatusUnhealthy
}

// Health returns a copy of the record for addr, or nil if it is not tracked.
func (h *HealthMonitor) Health(addr string) *InstanceHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, ok := h.instances[addr]
	if !ok {
		return nil
	}
	cp := *health
	return &cp
}
