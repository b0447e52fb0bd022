package pubsub

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"marketshm/internal/errors"
	"marketshm/pkg/exception"
)

// Publisher sends messages on redis channels.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) (*Publisher, error) {
	if rdb == nil {
		return nil, exception.ErrNilClient
	}
	return &Publisher{rdb: rdb}, nil
}

// Publish sends strings and byte slices as they are and everything else as
// JSON.
func (p *Publisher) Publish(ctx context.Context, channel string, message any) error {
	if channel == "" {
		return exception.ErrEmptyChannel
	}

	payload, err := encode(message)
	if err != nil {
		return errors.Wrapf(err, "encode message for %s", channel)
	}

	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return errors.Wrapf(err, "publish on %s", channel)
	}
	return nil
}

func encode(message any) (string, error) {
	switch m := message.(type) {
	case string:
		return m, nil
	case []byte:
		return string(m), nil
	default:
		return sonic.MarshalString(message)
	}
}
