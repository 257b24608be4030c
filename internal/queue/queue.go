// Package queue publishes complaint events to redis for downstream dispatch
// (department routing, notifications). The queue is optional; intake works
// without it.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const complaintEvents = "complaint_events"

// ErrEmpty reports that no complaint event arrived within the pop timeout.
var ErrEmpty = errors.New("queue: empty")

type Queue struct {
	client *redis.Client
}

func New(url string) (*Queue, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Queue{client: redis.NewClient(opt)}, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *Queue) PushComplaint(ctx context.Context, complaintID string) error {
	return q.client.LPush(ctx, complaintEvents, complaintID).Err()
}

func (q *Queue) PopComplaint(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.client.BRPop(ctx, timeout, complaintEvents).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrEmpty
		}
		return "", err
	}
	if len(res) < 2 {
		return "", ErrEmpty
	}
	return res[1], nil
}

func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, complaintEvents).Result()
}

func (q *Queue) Close() error {
	return q.client.Close()
}
