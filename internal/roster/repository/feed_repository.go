package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chat_roster_service/internal/roster/domain"
	"chat_roster_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// FeedRepository definition the live change feed. Listen blocks until the
// context is cancelled (nil return) or the transport drops (error return);
// the subscription manager owns resubscription.
type FeedRepository interface {
	Listen(ctx context.Context, ready func(), handler func(item domain.FeedItem)) error
}

// FeedPublisher definition the write side of the feed, used to publish the
// current user's own liveness
type FeedPublisher interface {
	Publish(table string, item domain.FeedItem) error
}

// RedisFeed one logical subscription over the per-table pub/sub channels
type RedisFeed struct {
	client *redis.Client
	prefix string
	ctx    context.Context
}

// NewRedisFeed create RedisFeed
func NewRedisFeed(client *redis.Client, channelPrefix string) *RedisFeed {
	return &RedisFeed{
		client: client,
		prefix: channelPrefix,
		ctx:    context.Background(),
	}
}

func (r *RedisFeed) channel(table string) string {
	return r.prefix + ":" + table
}

// Listen subscribe the message, receipt and presence channels and hand every
// decoded item to handler, in per-connection arrival order
func (r *RedisFeed) Listen(ctx context.Context, ready func(), handler func(item domain.FeedItem)) error {
	channels := []string{
		r.channel(domain.TableMessages),
		r.channel(domain.TableReceipts),
		r.channel(domain.TablePresence),
	}

	sub := r.client.Subscribe(ctx, channels...)
	defer sub.Close()

	// confirm the subscription before reporting ready
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("feed subscribe failed: %w", err)
	}
	if ready != nil {
		ready()
	}

	ch := sub.Channel()
	for {
		select {
		case m, ok := <-ch:
			if !ok {
				return fmt.Errorf("feed channel closed")
			}

			var item domain.FeedItem
			if err := json.Unmarshal([]byte(m.Payload), &item); err != nil {
				logger.Log.Error("feed decode err :", zap.String("err", fmt.Sprintf("failed to unmarshal feed item: %v", err)))
				continue
			}
			item.Table = strings.TrimPrefix(m.Channel, r.prefix+":")
			handler(item)
		case <-ctx.Done():
			logger.Log.Info(fmt.Sprintf("%s , feed close", r.prefix))
			return nil
		}
	}
}

// Publish serialize the item and publish it on its table channel
func (r *RedisFeed) Publish(table string, item domain.FeedItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return r.client.Publish(r.ctx, r.channel(table), data).Err()
}
