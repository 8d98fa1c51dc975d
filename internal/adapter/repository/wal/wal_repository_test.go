package wal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/compliance-gate/internal/domain"
)

func setupTestWAL(t *testing.T, maxSegmentSize, maxTotalSize int64) *WALRepository {
	t.Helper()
	dir := t.TempDir()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wal, err := NewWALRepository(dir, maxSegmentSize, maxTotalSize, logger)
	if err != nil {
		t.Fatalf("failed to create WALRepository: %v", err)
	}
	t.Cleanup(func() { wal.Close() })
	return wal
}

func newAuditEvent(outcome string) domain.AuditEvent {
	return domain.AuditEvent{
		ID:         uuid.NewString(),
		OccurredAt: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		Subject:    "user-1",
		Persona:    domain.PersonaManager,
		Operation:  "hact.export",
		EntityType: domain.EntityProperty,
		EntityID:   "42",
		Outcome:    outcome,
	}
}

func collect(t *testing.T, wal *WALRepository) []domain.AuditEvent {
	t.Helper()
	var drained []domain.AuditEvent
	err := wal.Drain(context.Background(), func(event domain.AuditEvent) error {
		drained = append(drained, event)
		return nil
	})
	if err != nil {
		t.Fatalf("failed to drain WAL: %v", err)
	}
	return drained
}

func TestWAL_WriteAndDrain(t *testing.T) {
	wal := setupTestWAL(t, 1024, 10*1024)

	events := []domain.AuditEvent{
		newAuditEvent("delivered"),
		newAuditEvent("denied"),
		newAuditEvent("not_found"),
	}
	for _, event := range events {
		if err := wal.Write(context.Background(), event); err != nil {
			t.Fatalf("failed to write event: %v", err)
		}
	}
	wal.Close()

	// Re-open the WAL to simulate a restart
	reopened, err := NewWALRepository(wal.dir, 1024, 10*1024, wal.logger)
	if err != nil {
		t.Fatalf("failed to re-open WAL: %v", err)
	}
	defer reopened.Close()

	if reopened.Size() == 0 {
		t.Error("expected reopened WAL to account for existing data")
	}

	replayed := collect(t, reopened)
	if len(replayed) != len(events) {
		t.Fatalf("expected %d replayed events, got %d", len(events), len(replayed))
	}
	for i, event := range events {
		if replayed[i].ID != event.ID || replayed[i].Outcome != event.Outcome || !replayed[i].OccurredAt.Equal(event.OccurredAt) {
			t.Errorf("replayed event mismatch at index %d: got %+v, want %+v", i, replayed[i], event)
		}
	}
}

func TestWAL_DrainSkipsCorruptLines(t *testing.T) {
	wal := setupTestWAL(t, 1024, 10*1024)

	if err := wal.Write(context.Background(), newAuditEvent("delivered")); err != nil {
		t.Fatalf("failed to write event: %v", err)
	}
	segments, _ := wal.segments()
	f, err := os.OpenFile(segments[0], os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		t.Fatalf("failed to open segment: %v", err)
	}
	f.WriteString("{not json\n")
	f.Close()

	if got := collect(t, wal); len(got) != 1 {
		t.Errorf("expected 1 decodable event, got %d", len(got))
	}
}

func TestWAL_DrainStopsOnHandlerError(t *testing.T) {
	wal := setupTestWAL(t, 1024, 10*1024)
	for i := 0; i < 3; i++ {
		if err := wal.Write(context.Background(), newAuditEvent("delivered")); err != nil {
			t.Fatalf("failed to write event: %v", err)
		}
	}

	calls := 0
	boom := errors.New("stream unavailable")
	err := wal.Drain(context.Background(), func(domain.AuditEvent) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected drain to stop after first failure, got %d calls", calls)
	}

	// Nothing was removed; the next drain sees every event again.
	if got := collect(t, wal); len(got) != 3 {
		t.Errorf("expected 3 events after failed drain, got %d", len(got))
	}
}

func TestWAL_SegmentRotation(t *testing.T) {
	// Every event is larger than a segment, forcing a rotation per write
	wal := setupTestWAL(t, 100, 10*1024)

	for i := 0; i < 3; i++ {
		if err := wal.Write(context.Background(), newAuditEvent("delivered")); err != nil {
			t.Fatalf("failed to write event: %v", err)
		}
	}

	segments, err := wal.segments()
	if err != nil {
		t.Fatalf("failed to get segments: %v", err)
	}
	if len(segments) < 2 {
		t.Errorf("expected at least 2 segments, got %d", len(segments))
	}
}

func TestWAL_DrainEmptiesWAL(t *testing.T) {
	wal := setupTestWAL(t, 100, 10*1024)

	for i := 0; i < 3; i++ {
		if err := wal.Write(context.Background(), newAuditEvent("denied")); err != nil {
			t.Fatalf("failed to write event: %v", err)
		}
	}
	if got := collect(t, wal); len(got) != 3 {
		t.Fatalf("expected 3 drained events, got %d", len(got))
	}

	segments, _ := wal.segments()
	if len(segments) != 1 {
		t.Fatalf("expected 1 fresh segment after drain, got %d", len(segments))
	}
	info, _ := os.Stat(segments[0])
	if info.Size() != 0 {
		t.Errorf("expected new segment to be empty, size is %d", info.Size())
	}
	if wal.Size() != 0 {
		t.Errorf("expected size 0 after drain, got %d", wal.Size())
	}
	if got := collect(t, wal); len(got) != 0 {
		t.Errorf("expected empty second drain, got %d events", len(got))
	}
}

func TestWAL_WriteDuringDrainIsKept(t *testing.T) {
	wal := setupTestWAL(t, 1024, 10*1024)
	if err := wal.Write(context.Background(), newAuditEvent("denied")); err != nil {
		t.Fatalf("failed to write event: %v", err)
	}

	late := newAuditEvent("delivered")
	written := make(chan error, 1)
	var first []domain.AuditEvent
	err := wal.Drain(context.Background(), func(event domain.AuditEvent) error {
		first = append(first, event)
		// A writer racing the drain blocks until the drain is done.
		go func() { written <- wal.Write(context.Background(), late) }()
		return nil
	})
	if err != nil {
		t.Fatalf("failed to drain WAL: %v", err)
	}
	if err := <-written; err != nil {
		t.Fatalf("concurrent write failed: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 event in first drain, got %d", len(first))
	}

	second := collect(t, wal)
	if len(second) != 1 || second[0].ID != late.ID {
		t.Fatalf("expected the late event to survive the drain, got %+v", second)
	}
}

func TestWAL_MaxTotalSize(t *testing.T) {
	wal := setupTestWAL(t, 100, 600)

	var err error
	for i := 0; i < 10; i++ {
		if err = wal.Write(context.Background(), newAuditEvent("delivered")); err != nil {
			break
		}
	}
	if !errors.Is(err, ErrWALFull) {
		t.Fatalf("expected ErrWALFull when writing beyond max total size, got %v", err)
	}
}

func TestWAL_IgnoresForeignFiles(t *testing.T) {
	wal := setupTestWAL(t, 1024, 10*1024)
	if err := os.WriteFile(filepath.Join(wal.dir, "notes.txt"), []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}
	segments, _ := wal.segments()
	for _, s := range segments {
		if filepath.Base(s) == "notes.txt" {
			t.Error("foreign file treated as a segment")
		}
	}
}
