package app

import (
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/budgetvault-backend/internal/clients/redis"
	"github.com/yungbote/budgetvault-backend/internal/platform/logger"
)

type Clients struct {
	EventBus redis.EventBus
	Redis    *goredis.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		log.Info("REDIS_ADDR not set; snapshot events are not published")
		return Clients{EventBus: redis.NopBus()}, nil
	}
	bus, rdb, err := redis.NewEventBus(log, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Channel:  cfg.Redis.Channel,
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init redis event bus: %w", err)
	}
	return Clients{EventBus: bus, Redis: rdb}, nil
}

func (c Clients) Close() {
	if c.EventBus != nil {
		_ = c.EventBus.Close()
	}
}
