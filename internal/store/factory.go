package store

import (
	"log"

	"github.com/illusionlabs/classync/internal/config"
	"github.com/illusionlabs/classync/internal/store/memory"
	"github.com/illusionlabs/classync/internal/store/redis"
)

// NewStore creates the configured store implementation. Redis is used when
// enabled; otherwise state lives in process memory and is lost on restart,
// which the sync core tolerates by recreating defaults on next room access.
func NewStore(cfg config.RedisConfig) (Store, error) {
	if cfg.Enabled {
		log.Printf("Using Redis state store at %s:%s", cfg.Host, cfg.Port)
		return redis.NewStore(cfg)
	}

	log.Println("Redis disabled, using in-memory state store")
	return memory.NewStore(), nil
}
