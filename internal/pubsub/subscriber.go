package pubsub

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"marketshm/internal/errors"
	"marketshm/pkg/exception"
)

// Message is one received payload.
type Message struct {
	Channel string
	Payload string
}

// Decode unmarshals a JSON payload into v.
func (m Message) Decode(v any) error {
	return sonic.UnmarshalString(m.Payload, v)
}

// Subscriber receives messages from redis channels.
type Subscriber struct {
	rdb *redis.Client
}

func NewSubscriber(rdb *redis.Client) (*Subscriber, error) {
	if rdb == nil {
		return nil, exception.ErrNilClient
	}
	return &Subscriber{rdb: rdb}, nil
}

// Subscribe calls handler for every message on channels until ctx is done.
// It returns once the subscription is confirmed by the server, the handler
// runs on its own goroutine; the returned channel is closed when delivery
// stops.
func (s *Subscriber) Subscribe(ctx context.Context, handler func(Message), channels ...string) (<-chan struct{}, error) {
	if len(channels) == 0 {
		return nil, exception.ErrEmptyChannel
	}
	for _, ch := range channels {
		if ch == "" {
			return nil, exception.ErrEmptyChannel
		}
	}

	sub := s.rdb.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, errors.Wrap(err, "confirm subscription")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				handler(Message{Channel: msg.Channel, Payload: msg.Payload})
			}
		}
	}()
	return done, nil
}
