// Package factory constructs the configured bus implementation. It lives
// outside package bus so the implementations can import the bus interfaces
// without creating an import cycle.
package factory

import (
	"log"

	"github.com/illusionlabs/classync/internal/bus"
	"github.com/illusionlabs/classync/internal/bus/memory"
	"github.com/illusionlabs/classync/internal/bus/redis"
	"github.com/illusionlabs/classync/internal/config"
)

// NewBus creates the configured broadcast bus implementation. Redis pub/sub
// lets handlers in other processes reach this process's room subscribers;
// the in-process bus is sufficient for a single-instance deployment.
func NewBus(cfg config.RedisConfig) (bus.Bus, error) {
	if cfg.Enabled {
		log.Printf("Using Redis broadcast bus at %s:%s", cfg.Host, cfg.Port)
		return redis.NewBus(cfg)
	}

	log.Println("Redis disabled, using in-process broadcast bus")
	return memory.NewBus(), nil
}
