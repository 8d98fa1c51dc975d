package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/compliance-gate/internal/adapter/metrics"
	"github.com/V4T54L/compliance-gate/internal/domain"
)

// AuditRepository buffers audit events in a Redis Stream. It implements both
// domain.AuditRepository (producer side, with WAL failover) and
// domain.AuditBuffer (consumer side).
type AuditRepository struct {
	client       *redis.Client
	logger       *slog.Logger
	wal          domain.WALRepository
	metrics      *metrics.GatewayMetrics
	streamKey    string
	dlqStreamKey string
	isAvailable  atomic.Bool
}

// NewAuditRepository creates a Redis-backed audit repository on streamKey.
// The WAL and metrics are optional; consumers pass nil for both. When group is
// non-empty the consumer group is created if it does not exist yet.
func NewAuditRepository(client *redis.Client, logger *slog.Logger, streamKey, dlqStreamKey, group string, wal domain.WALRepository, m *metrics.GatewayMetrics) *AuditRepository {
	repo := &AuditRepository{
		client:       client,
		logger:       logger.With("component", "redis_audit_repository"),
		wal:          wal,
		metrics:      m,
		streamKey:    streamKey,
		dlqStreamKey: dlqStreamKey,
	}
	repo.isAvailable.Store(true)

	if group != "" {
		if err := repo.setupConsumerGroup(context.Background(), group); err != nil {
			repo.markUnavailable(err)
		}
	}

	return repo
}

// StartHealthCheck monitors Redis connectivity and drains the WAL while Redis
// is reachable. It blocks until ctx is cancelled.
func (r *AuditRepository) StartHealthCheck(ctx context.Context, interval time.Duration) {
	if r.wal == nil {
		r.logger.Info("WAL is not configured, skipping health check/replayer")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("Starting Redis health check and WAL replayer", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping Redis health check")
			return
		case <-ticker.C:
			r.checkHealth(ctx)
		}
	}
}

func (r *AuditRepository) checkHealth(ctx context.Context) {
	if err := r.client.Ping(ctx).Err(); err != nil {
		r.markUnavailable(err)
		return
	}
	if r.isAvailable.CompareAndSwap(false, true) {
		r.logger.Info("Redis connection recovered")
	}

	// Drained on every tick: a Record that saw Redis as down can still write
	// to the WAL after the recovery above.
	if err := r.DrainWAL(ctx); err != nil {
		r.logger.Error("Failed to drain WAL into Redis", "error", err)
		r.markUnavailable(err)
		return
	}
	r.setWALActive(false)
}

// DrainWAL pushes WAL contents to the stream, removing them as they are sent.
func (r *AuditRepository) DrainWAL(ctx context.Context) error {
	if r.wal == nil {
		return nil
	}
	if err := r.wal.Drain(ctx, func(event domain.AuditEvent) error {
		return r.appendToStream(ctx, event)
	}); err != nil {
		return fmt.Errorf("WAL drain failed: %w", err)
	}
	return nil
}

func (r *AuditRepository) setupConsumerGroup(ctx context.Context, group string) error {
	err := r.client.XGroupCreateMkStream(ctx, r.streamKey, group, "0").Err()
	if err != nil && !isRedisBusyGroupError(err) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Record appends an audit event to the stream, falling back to the WAL when
// Redis is unavailable.
func (r *AuditRepository) Record(ctx context.Context, event domain.AuditEvent) error {
	if !r.isAvailable.Load() {
		return r.writeWAL(ctx, event, nil)
	}

	err := r.appendToStream(ctx, event)
	if err == nil {
		return nil
	}
	if !isNetworkError(err) {
		return err
	}
	r.markUnavailable(err)
	return r.writeWAL(ctx, event, err)
}

func (r *AuditRepository) writeWAL(ctx context.Context, event domain.AuditEvent, cause error) error {
	if r.wal == nil {
		if cause != nil {
			return fmt.Errorf("redis became unavailable and WAL is not configured: %w", cause)
		}
		return errors.New("redis is unavailable and WAL is not configured")
	}
	r.setWALActive(true)
	r.logger.Warn("Redis is unavailable, writing audit event to WAL", "event_id", event.ID)
	return r.wal.Write(ctx, event)
}

func (r *AuditRepository) appendToStream(ctx context.Context, event domain.AuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: r.streamKey,
		Values: map[string]interface{}{"payload": payload, "outcome": event.Outcome},
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to XADD to redis stream: %w", err)
	}
	return nil
}

// ReadAuditBatch reads up to count new audit events for consumer in group.
func (r *AuditRepository) ReadAuditBatch(ctx context.Context, group, consumer string, count int) ([]domain.AuditEvent, error) {
	streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{r.streamKey, ">"},
		Count:    int64(count),
		Block:    2 * time.Second,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to XREADGROUP from redis: %w", err)
	}

	if len(streams) == 0 {
		return nil, nil
	}

	return r.decodeMessages(ctx, group, streams[0].Messages), nil
}

// ClaimStaleAudit takes over up to count messages of group that have been
// pending for at least minIdle and assigns them to consumer.
func (r *AuditRepository) ClaimStaleAudit(ctx context.Context, group, consumer string, minIdle time.Duration, count int) ([]domain.AuditEvent, error) {
	pending, err := r.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: r.streamKey,
		Group:  group,
		Start:  "-",
		End:    "+",
		Count:  int64(count),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending audit messages: %w", err)
	}

	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		if p.Idle >= minIdle {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	claimed, err := r.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   r.streamKey,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending audit messages: %w", err)
	}

	return r.decodeMessages(ctx, group, claimed), nil
}

// decodeMessages turns stream messages into audit events. Messages that cannot
// be decoded are acknowledged so they are not claimed again.
func (r *AuditRepository) decodeMessages(ctx context.Context, group string, msgs []redis.XMessage) []domain.AuditEvent {
	events := make([]domain.AuditEvent, 0, len(msgs))
	var malformed []string
	for _, msg := range msgs {
		payload, ok := msg.Values["payload"].(string)
		if !ok {
			r.logger.Warn("Invalid message format in audit stream, skipping", "message_id", msg.ID)
			malformed = append(malformed, msg.ID)
			continue
		}

		var event domain.AuditEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			r.logger.Warn("Failed to unmarshal audit event from stream, skipping", "message_id", msg.ID, "error", err)
			malformed = append(malformed, msg.ID)
			continue
		}
		event.StreamMessageID = msg.ID
		events = append(events, event)
	}

	if err := r.AcknowledgeAudit(ctx, group, malformed...); err != nil {
		r.logger.Error("Failed to acknowledge malformed audit messages", "error", err, "count", len(malformed))
	}
	return events
}

// AcknowledgeAudit acknowledges processed messages in the stream.
func (r *AuditRepository) AcknowledgeAudit(ctx context.Context, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := r.client.XAck(ctx, r.streamKey, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("failed to XACK messages in redis: %w", err)
	}
	return nil
}

// MoveToDLQ copies events to the dead-letter stream.
func (r *AuditRepository) MoveToDLQ(ctx context.Context, events []domain.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	failedAt := time.Now().UTC().Format(time.RFC3339)
	pipe := r.client.Pipeline()
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			r.logger.Error("Failed to marshal audit event for DLQ", "event_id", event.ID, "error", err)
			continue
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: r.dlqStreamKey,
			Values: map[string]interface{}{
				"payload":         payload,
				"original_stream": r.streamKey,
				"original_msg_id": event.StreamMessageID,
				"failed_at":       failedAt,
			},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute DLQ pipeline: %w", err)
	}
	r.logger.Warn("Moved audit events to DLQ", "count", len(events))
	return nil
}

// PendingAudit returns the number of delivered but unacknowledged messages for group.
func (r *AuditRepository) PendingAudit(ctx context.Context, group string) (int64, error) {
	pending, err := r.client.XPending(ctx, r.streamKey, group).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get pending info for stream %s, group %s: %w", r.streamKey, group, err)
	}
	return pending.Count, nil
}

// PendingAuditMessages lists up to count unacknowledged messages of group,
// oldest first.
func (r *AuditRepository) PendingAuditMessages(ctx context.Context, group string, count int64) ([]domain.PendingAuditMessage, error) {
	pending, err := r.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: r.streamKey,
		Group:  group,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get pending messages for stream %s, group %s: %w", r.streamKey, group, err)
	}

	result := make([]domain.PendingAuditMessage, len(pending))
	for i, p := range pending {
		result[i] = domain.PendingAuditMessage{
			ID:         p.ID,
			Consumer:   p.Consumer,
			IdleTime:   p.Idle,
			RetryCount: p.RetryCount,
		}
	}
	return result, nil
}

func (r *AuditRepository) markUnavailable(err error) {
	if r.isAvailable.CompareAndSwap(true, false) {
		r.logger.Error("Redis connection lost", "error", err)
	}
}

func (r *AuditRepository) setWALActive(active bool) {
	if r.metrics == nil {
		return
	}
	if active {
		r.metrics.WALActive.Set(1)
	} else {
		r.metrics.WALActive.Set(0)
	}
}

func isRedisBusyGroupError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.DeadlineExceeded)
}
