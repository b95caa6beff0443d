package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domain "github.com/yungbote/budgetvault-backend/internal/domain/snapshots"
	"github.com/yungbote/budgetvault-backend/internal/platform/logger"
)

const DefaultChannel = "snapshots"

type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// EventBus fans committed snapshot writes out to downstream consumers.
type EventBus interface {
	Publish(ctx context.Context, ev domain.Event) error
	Close() error
}

type eventBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewEventBus(log *logger.Logger, cfg Config) (EventBus, *goredis.Client, error) {
	if log == nil {
		return nil, nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(cfg.Channel)
	if ch == "" {
		ch = DefaultChannel
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	return &eventBus{
		log:     log.With("client", "RedisEventBus"),
		rdb:     rdb,
		channel: ch,
	}, rdb, nil
}

func (b *eventBus) Publish(ctx context.Context, ev domain.Event) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	raw, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", ev.Type, err)
	}
	return nil
}

func (b *eventBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

func EncodeEvent(ev domain.Event) ([]byte, error) {
	if strings.TrimSpace(ev.Type) == "" {
		return nil, fmt.Errorf("event type required")
	}
	return json.Marshal(ev)
}

type nopBus struct{}

// NopBus is used when REDIS_ADDR is unset.
func NopBus() EventBus { return nopBus{} }

func (nopBus) Publish(context.Context, domain.Event) error { return nil }
func (nopBus) Close() error                                { return nil }
