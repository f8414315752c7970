package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Redis struct {
	Client         *redis.Client
	Logger         *zap.SugaredLogger
	HistoryChannel string
}

func New(ctx context.Context, host, password, historyChannel string, logger *zap.SugaredLogger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     host,
		Password: password,
	})

	_, err := client.Ping(ctx).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Redis{
		Client:         client,
		Logger:         logger,
		HistoryChannel: historyChannel,
	}, nil
}

// Produce publishes data as JSON on the history channel.
func (r *Redis) Produce(ctx context.Context, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	err = r.Client.Publish(ctx, r.HistoryChannel, jsonData).Err()
	if err != nil {
		return err
	}

	r.Logger.Infow("redis: Produce", "channel", r.HistoryChannel)

	return nil
}

// Consume subscribes to the history channel and returns once the server has
// confirmed the subscription. The returned channel closes when ctx is done.
func (r *Redis) Consume(ctx context.Context) (<-chan *redis.Message, error) {
	sub := r.Client.Subscribe(ctx, r.HistoryChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", r.HistoryChannel, err)
	}
	out := make(chan *redis.Message)

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (r *Redis) Close() error {
	return r.Client.Close()
}
