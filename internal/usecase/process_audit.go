package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/V4T54L/compliance-gate/internal/domain"
)

const (
	DefaultAuditRetryCount   = 3
	DefaultAuditRetryBackoff = 1 * time.Second
	DefaultAuditClaimMinIdle = 30 * time.Second
)

// ProcessAuditUseCase moves audit events from the stream buffer into the
// structured audit sink.
type ProcessAuditUseCase struct {
	buffer       domain.AuditBuffer
	sink         domain.AuditSink
	logger       *slog.Logger
	group        string
	consumer     string
	batchSize    int
	retryCount   int
	retryBackoff time.Duration
	claimMinIdle time.Duration
}

// NewProcessAuditUseCase creates a new use case for draining the audit stream.
func NewProcessAuditUseCase(buffer domain.AuditBuffer, sink domain.AuditSink, logger *slog.Logger, group, consumer string, batchSize, retryCount int, retryBackoff, claimMinIdle time.Duration) *ProcessAuditUseCase {
	if retryCount < 1 {
		retryCount = 1
	}
	return &ProcessAuditUseCase{
		buffer:       buffer,
		sink:         sink,
		logger:       logger,
		group:        group,
		consumer:     consumer,
		batchSize:    batchSize,
		retryCount:   retryCount,
		retryBackoff: retryBackoff,
		claimMinIdle: claimMinIdle,
	}
}

// ProcessBatch writes one batch of audit events to the sink and acknowledges
// them. Events left pending by an earlier failed delivery are reclaimed before
// new events are read. Events the sink keeps rejecting are moved to the DLQ and
// acknowledged so the stream keeps moving.
func (uc *ProcessAuditUseCase) ProcessBatch(ctx context.Context) (int, error) {
	// 1. Reclaim stale pending events, otherwise read new ones
	events, err := uc.buffer.ClaimStaleAudit(ctx, uc.group, uc.consumer, uc.claimMinIdle, uc.batchSize)
	if err != nil {
		uc.logger.Warn("failed to reclaim stale audit events", "error", err)
		events = nil
	}
	if len(events) > 0 {
		uc.logger.Info("reclaimed stale audit events", "count", len(events))
	} else {
		events, err = uc.buffer.ReadAuditBatch(ctx, uc.group, uc.consumer, uc.batchSize)
		if err != nil {
			uc.logger.Error("failed to read audit batch from buffer", "error", err)
			return 0, err
		}
	}

	if len(events) == 0 {
		return 0, nil
	}

	uc.logger.Debug("read batch of audit events from buffer", "count", len(events))

	messageIDs := make([]string, len(events))
	for i, event := range events {
		messageIDs[i] = event.StreamMessageID
	}

	// 2. Write the batch to the sink with retries
	if writeErr := uc.writeWithRetry(ctx, events); writeErr != nil {
		uc.logger.Error("failed to write audit batch to sink after retries, moving to DLQ", "error", writeErr, "count", len(events))
		if err := uc.buffer.MoveToDLQ(ctx, events); err != nil {
			uc.logger.Error("failed to move audit batch to DLQ", "error", err)
			return 0, err
		}
		if err := uc.buffer.AcknowledgeAudit(ctx, uc.group, messageIDs...); err != nil {
			uc.logger.Error("failed to acknowledge dead-lettered audit events", "error", err)
			return 0, err
		}
		return 0, writeErr
	}

	// 3. Acknowledge the messages in the buffer
	if err := uc.buffer.AcknowledgeAudit(ctx, uc.group, messageIDs...); err != nil {
		// The events stay pending and are reclaimed later; the sink drops the duplicates.
		uc.logger.Error("failed to acknowledge audit events in buffer", "error", err)
		return 0, err
	}

	uc.logger.Info("successfully processed audit batch", "count", len(events))
	return len(events), nil
}

func (uc *ProcessAuditUseCase) writeWithRetry(ctx context.Context, events []domain.AuditEvent) error {
	var lastErr error
	for i := 0; i < uc.retryCount; i++ {
		err := uc.sink.WriteAuditBatch(ctx, events)
		if err == nil {
			return nil
		}
		lastErr = err
		uc.logger.Warn("failed to write audit batch to sink, retrying...", "attempt", i+1, "error", err)
		if i == uc.retryCount-1 {
			break
		}
		select {
		case <-time.After(uc.retryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
