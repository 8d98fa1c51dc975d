package wal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/V4T54L/compliance-gate/internal/domain"
)

const (
	segmentPrefix = "audit-"
	segmentSuffix = ".wal"
	filePerm      = 0o640
)

// ErrWALFull is returned when a write would exceed the configured disk budget.
var ErrWALFull = errors.New("audit WAL max total size exceeded")

// WALRepository is a file-based Write-Ahead Log for audit events that could not
// reach the audit stream. Events are stored one JSON document per line.
type WALRepository struct {
	dir            string
	maxSegmentSize int64
	maxTotalSize   int64
	logger         *slog.Logger

	mu             sync.Mutex
	currentSegment *os.File
	currentSize    int64
	// closedSize is the size of every segment other than the current one.
	closedSize int64
}

// NewWALRepository opens (or creates) the WAL in dir.
func NewWALRepository(dir string, maxSegmentSize, maxTotalSize int64, logger *slog.Logger) (*WALRepository, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory %s: %w", dir, err)
	}

	w := &WALRepository{
		dir:            dir,
		maxSegmentSize: maxSegmentSize,
		maxTotalSize:   maxTotalSize,
		logger:         logger.With("component", "audit_wal"),
	}

	if err := w.openLatestSegment(); err != nil {
		return nil, err
	}

	return w, nil
}

// Write appends an audit event to the current segment and syncs it to disk.
func (w *WALRepository) Write(ctx context.Context, event domain.AuditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event for WAL: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentSegment == nil {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	if w.closedSize+w.currentSize+int64(len(data)) > w.maxTotalSize {
		return fmt.Errorf("%w (%d bytes on disk, limit %d)", ErrWALFull, w.closedSize+w.currentSize, w.maxTotalSize)
	}

	n, err := w.currentSegment.Write(data)
	w.currentSize += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write to WAL segment: %w", err)
	}
	// Audit records must survive a crash once Write has returned.
	if err := w.currentSegment.Sync(); err != nil {
		return fmt.Errorf("failed to sync WAL segment: %w", err)
	}

	if w.currentSize >= w.maxSegmentSize {
		if err := w.rotate(); err != nil {
			w.logger.Error("Failed to rotate WAL segment", "error", err)
		}
	}

	return nil
}

// Drain replays every segment in order and removes each one once all of its
// events were handled. The WAL lock is held throughout, so a concurrent Write
// lands in a fresh segment after Drain returns and is never removed unread.
// Lines that cannot be decoded are skipped. The first handler error stops the
// drain and keeps the failing segment and every later one.
func (w *WALRepository) Drain(ctx context.Context, handler func(event domain.AuditEvent) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closedSize+w.currentSize == 0 {
		return nil
	}

	w.closeCurrent()

	segments, err := w.segments()
	if err != nil {
		return errors.Join(err, w.openLatestSegment())
	}

	w.logger.Info("Starting WAL drain", "segment_count", len(segments))
	drained := 0
	var drainErr error
	for _, path := range segments {
		n, err := w.replaySegment(ctx, path, handler)
		drained += n
		if err != nil {
			drainErr = err
			break
		}
		if err := os.Remove(path); err != nil {
			// The segment is replayed again on the next drain; the sink drops duplicates.
			w.logger.Error("Failed to remove drained WAL segment", "path", path, "error", err)
		}
	}

	if err := w.openLatestSegment(); err != nil {
		return errors.Join(drainErr, err)
	}
	if drainErr != nil {
		return drainErr
	}

	w.logger.Info("WAL drain completed", "events", drained, "segments", len(segments))
	return nil
}

func (w *WALRepository) replaySegment(ctx context.Context, path string, handler func(domain.AuditEvent) error) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open segment %s for replay: %w", path, err)
	}
	defer file.Close()

	count := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		var event domain.AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			w.logger.Warn("Failed to decode audit event from WAL, skipping", "error", err, "segment", filepath.Base(path))
			continue
		}
		if err := handler(event); err != nil {
			w.logger.Error("WAL replay handler failed, stopping drain", "error", err, "event_id", event.ID)
			return count, fmt.Errorf("replay handler failed: %w", err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("error scanning segment %s: %w", path, err)
	}
	return count, nil
}

// Size reports the number of bytes currently held in the WAL.
func (w *WALRepository) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closedSize + w.currentSize
}

// Close closes the current segment.
func (w *WALRepository) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.currentSegment == nil {
		return nil
	}
	err := w.currentSegment.Close()
	w.currentSegment = nil
	return err
}

func (w *WALRepository) closeCurrent() {
	if w.currentSegment == nil {
		return
	}
	if err := w.currentSegment.Close(); err != nil {
		w.logger.Warn("Failed to close WAL segment", "error", err)
	}
	w.closedSize += w.currentSize
	w.currentSegment = nil
	w.currentSize = 0
}

func (w *WALRepository) rotate() error {
	if w.currentSegment != nil {
		if err := w.currentSegment.Sync(); err != nil {
			w.logger.Error("Failed to sync WAL segment before rotating", "error", err)
		}
		w.closeCurrent()
	}

	name := fmt.Sprintf("%s%020d%s", segmentPrefix, time.Now().UnixNano(), segmentSuffix)
	path := filepath.Join(w.dir, name)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to create new WAL segment %s: %w", path, err)
	}

	w.currentSegment = f
	w.currentSize = 0
	w.logger.Debug("Rotated to new WAL segment", "path", path)
	return nil
}

// openLatestSegment reopens the newest segment for appending and recomputes
// the size accounting from disk.
func (w *WALRepository) openLatestSegment() error {
	segments, err := w.segments()
	if err != nil {
		return err
	}

	w.closedSize = 0
	if len(segments) == 0 {
		return w.rotate()
	}

	for _, path := range segments[:len(segments)-1] {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat segment %s: %w", path, err)
		}
		w.closedSize += info.Size()
	}

	latest := segments[len(segments)-1]
	info, err := os.Stat(latest)
	if err != nil {
		return fmt.Errorf("failed to stat latest segment %s: %w", latest, err)
	}
	f, err := os.OpenFile(latest, os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to open latest segment %s: %w", latest, err)
	}

	w.currentSegment = f
	w.currentSize = info.Size()
	w.logger.Info("Opened existing WAL segment", "path", latest, "size", w.currentSize)

	if w.currentSize >= w.maxSegmentSize {
		return w.rotate()
	}
	return nil
}

func (w *WALRepository) segments() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAL directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, segmentPrefix) && strings.HasSuffix(name, segmentSuffix) {
			segments = append(segments, filepath.Join(w.dir, name))
		}
	}
	sort.Strings(segments)
	return segments, nil
}
