package simenv

import "github.com/giantswarm/simenv/internal/core"

// registryConfig wraps core.RegistryConfig so internal types stay out of the
// public option signatures.
type registryConfig struct {
	core.RegistryConfig
}

func (c registryConfig) toCoreConfig() core.RegistryConfig {
	return c.RegistryConfig
}
