package registry

import (
	"context"
	"fmt"

	"github.com/eaglebank/digibank/shared/config"
	"github.com/eaglebank/digibank/shared/logger"
)

// FromConfig builds the resolver selected by cfg.Mode. In static mode with
// health checks enabled it also starts a HealthMonitor that runs until ctx is
// cancelled.
func FromConfig(ctx context.Context, cfg config.RegistryConfig, log *logger.Logger) (Resolver, error) {
	switch cfg.Mode {
	case "consul":
		r, err := NewConsulRegistry(cfg.ConsulAddr)
		if err != nil {
			return nil, err
		}
		log.Info("using consul registry", "addr", cfg.ConsulAddr)
		return r, nil

	case "static", "":
		r := NewStaticRegistry(cfg.Instances)
		if cfg.HealthCheck.Enabled {
			hc := cfg.HealthCheck
			monitor := NewHealthMonitor(log, hc.Interval, hc.Timeout, hc.MaxFailures)
			r.SetHealthStatus(monitor)
			go monitor.Start(ctx, r.Instances)
		}
		log.Info("using static registry", "instances", len(r.Instances()), "healthChecks", cfg.HealthCheck.Enabled)
		return r, nil
	}
	return nil, fmt.Errorf("unknown registry mode %q", cfg.Mode)
}

// Defaults are the registry settings shared by every binary that resolves
// services.
func Defaults() map[string]any {
	return map[string]any{
		"registry.mode":                      "static",
		"registry.consul_addr":               "",
		"registry.health_check.enabled":      true,
		"registry.health_check.interval":     "10s",
		"registry.health_check.timeout":      "2s",
		"registry.health_check.max_failures": 3,
	}
}
