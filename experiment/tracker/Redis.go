package tracker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the list that episode metrics are pushed onto if
// no key is given
const DefaultRedisKey = "wsnlearn:episodes"

// RedisSink pushes each EpisodeMetrics as a JSON record onto a Redis
// list so that the learning progress of a run can be followed from
// outside of the process.
type RedisSink struct {
	client *redis.Client
	key    string
}

// NewRedisSink returns a new RedisSink which pushes onto the list key
// of the Redis server described by opts
func NewRedisSink(opts *redis.Options, key string) *RedisSink {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSink{
		client: redis.NewClient(opts),
		key:    key,
	}
}

// Record implements the Sink interface
func (r *RedisSink) Record(ctx context.Context, m EpisodeMetrics) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("record: %v", err)
	}

	if err := r.client.RPush(ctx, r.key, data).Err(); err != nil {
		return fmt.Errorf("record: could not push to %v: %v", r.key, err)
	}
	return nil
}

// Close closes the connection to the Redis server
func (r *RedisSink) Close() error {
	return r.client.Close()
}
