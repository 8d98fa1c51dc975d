package redis

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// AuditConsumerGroup is the consumer group the audit sink reads with.
const AuditConsumerGroup = "audit-sink"

// DLQStream names the dead-letter stream for stream.
func DLQStream(stream string) string {
	return stream + "_dlq"
}

// NewClient builds a client from either a redis:// URL or a plain host:port.
func NewClient(addr string) (*redis.Client, error) {
	if strings.Contains(addr, "://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}
