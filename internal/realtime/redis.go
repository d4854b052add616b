package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"kejinlab/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	pageChannelPrefix = "comments:page:"
	unscopedChannel   = "comments:unscoped"
)

// PageChannel returns the Redis channel carrying events for pageID.
func PageChannel(pageID string) string {
	return pageChannelPrefix + pageID
}

// RedisBroker publishes change events over Redis pub/sub so every server process sees them.
type RedisBroker struct {
	rdb    *redis.Client
	buffer int
}

// NewRedisBroker wraps an existing client.
func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb, buffer: defaultBuffer}
}

// NewRedisBrokerFromURL parses url, pings the server and returns a broker.
func NewRedisBrokerFromURL(ctx context.Context, url string) (*RedisBroker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisBroker(rdb), nil
}

// Publish sends ev to the page channel, or to the unscoped channel when the page is unknown.
func (b *RedisBroker) Publish(ctx context.Context, ev ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	channel := unscopedChannel
	if page := ev.PageID(); page != "" {
		channel = PageChannel(page)
	}
	return b.rdb.Publish(ctx, channel, payload).Err()
}

// Subscribe listens on the page channel and the unscoped channel.
func (b *RedisBroker) Subscribe(ctx context.Context, pageID string) (*Subscription, error) {
	ps := b.rdb.Subscribe(ctx, PageChannel(pageID), unscopedChannel)
	// 等待订阅确认，避免订阅建立前发布的事件丢失
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", pageID, err)
	}

	out := make(chan ChangeEvent, b.buffer)
	done := make(chan struct{})
	msgs := ps.Channel()

	go func() {
		defer close(out)
		defer func() {
			if r := recover(); r != nil {
				logger.L().Error("panic in redis subscriber",
					zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			}
		}()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logger.L().Warn("invalid change event payload",
						zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-done:
					return
				default:
					logger.L().Warn("realtime subscriber buffer full, dropping event",
						zap.String("page_id", pageID), zap.String("type", string(ev.Type)))
				}
			}
		}
	}()

	return newSubscription(out, func() error {
		close(done)
		return ps.Close()
	}), nil
}

// Close closes the Redis client.
func (b *RedisBroker) Close() error {
	return b.rdb.Close()
}
