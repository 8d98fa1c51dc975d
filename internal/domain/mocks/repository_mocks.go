package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/V4T54L/compliance-gate/internal/domain"
)

// MockHACTExporter is a mock implementation of domain.HACTExporter for testing.
// Records are keyed by entity type then id; missing entries yield domain.ErrNotFound.
type MockHACTExporter struct {
	mu      sync.Mutex
	Records map[domain.EntityType]map[string]*domain.HACTRecord
	Err     error
	// Block, when set, makes every call wait for ctx cancellation.
	Block bool
	Calls []string
}

func (m *MockHACTExporter) ExportProperty(ctx context.Context, id string) (*domain.HACTRecord, error) {
	return m.export(ctx, domain.EntityProperty, id)
}

func (m *MockHACTExporter) ExportTenant(ctx context.Context, id string) (*domain.HACTRecord, error) {
	return m.export(ctx, domain.EntityTenant, id)
}

func (m *MockHACTExporter) ExportCase(ctx context.Context, id string) (*domain.HACTRecord, error) {
	return m.export(ctx, domain.EntityCase, id)
}

// CallCount returns how many times any export collaborator was invoked.
func (m *MockHACTExporter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockHACTExporter) export(ctx context.Context, entity domain.EntityType, id string) (*domain.HACTRecord, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, string(entity)+"/"+id)
	block := m.Block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	rec, ok := m.Records[entity][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

// MockAuditRepository is a mock implementation of domain.AuditRepository for testing.
type MockAuditRepository struct {
	mu        sync.Mutex
	Events    []domain.AuditEvent
	RecordErr error
}

func (m *MockAuditRepository) Record(ctx context.Context, event domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.Events = append(m.Events, event)
	return nil
}

// Recorded returns a copy of the recorded events.
func (m *MockAuditRepository) Recorded() []domain.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditEvent, len(m.Events))
	copy(out, m.Events)
	return out
}

// MockAuditBuffer is a mock implementation of domain.AuditBuffer for testing.
type MockAuditBuffer struct {
	mu              sync.Mutex
	ReadBatchResult []domain.AuditEvent
	ClaimResult     []domain.AuditEvent
	AckedMessageIDs []string
	DLQEvents       []domain.AuditEvent
	ReadErr         error
	ClaimErr        error
	AckErr          error
	DLQErr          error
	ReadCalls       int
	ClaimCalls      int
}

func (m *MockAuditBuffer) ReadAuditBatch(ctx context.Context, group, consumer string, count int) ([]domain.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadCalls++
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	return m.ReadBatchResult, nil
}

func (m *MockAuditBuffer) ClaimStaleAudit(ctx context.Context, group, consumer string, minIdle time.Duration, count int) ([]domain.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClaimCalls++
	if m.ClaimErr != nil {
		return nil, m.ClaimErr
	}
	claimed := m.ClaimResult
	m.ClaimResult = nil
	return claimed, nil
}

func (m *MockAuditBuffer) AcknowledgeAudit(ctx context.Context, group string, messageIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AckErr != nil {
		return m.AckErr
	}
	m.AckedMessageIDs = append(m.AckedMessageIDs, messageIDs...)
	return nil
}

func (m *MockAuditBuffer) MoveToDLQ(ctx context.Context, events []domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DLQErr != nil {
		return m.DLQErr
	}
	m.DLQEvents = append(m.DLQEvents, events...)
	return nil
}

// MockAuditSink is a mock implementation of domain.AuditSink for testing.
type MockAuditSink struct {
	mu            sync.Mutex
	WrittenEvents []domain.AuditEvent
	WriteErr      error
	Attempts      int
}

func (m *MockAuditSink) WriteAuditBatch(ctx context.Context, events []domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attempts++
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.WrittenEvents = append(m.WrittenEvents, events...)
	return nil
}

// MockPersonaRepository is a mock implementation of domain.PersonaRepository for testing.
type MockPersonaRepository struct {
	mu       sync.Mutex
	Personas map[string]domain.Persona
	Err      error
	Lookups  int
}

func (m *MockPersonaRepository) PersonaFor(ctx context.Context, subject string) (domain.Persona, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lookups++
	if m.Err != nil {
		return "", m.Err
	}
	p, ok := m.Personas[subject]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

// MockIdentityVerifier is a mock implementation of domain.IdentityVerifier.
// Tokens map directly to actors.
type MockIdentityVerifier struct {
	Actors map[string]domain.Actor
	Err    error
}

func (m *MockIdentityVerifier) Verify(ctx context.Context, token string) (domain.Actor, error) {
	if m.Err != nil {
		return domain.Actor{}, m.Err
	}
	actor, ok := m.Actors[token]
	if !ok {
		return domain.Actor{}, domain.ErrUnauthenticated
	}
	return actor, nil
}

// MockWALRepository is an in-memory implementation of domain.WALRepository for testing.
type MockWALRepository struct {
	mu       sync.Mutex
	Events   []domain.AuditEvent
	WriteErr error
	// Drains counts calls to Drain.
	Drains int
}

func (m *MockWALRepository) Write(ctx context.Context, event domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Events = append(m.Events, event)
	return nil
}

// Drain holds the lock for the whole call, as the file WAL does.
func (m *MockWALRepository) Drain(ctx context.Context, handler func(event domain.AuditEvent) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Drains++

	for i, e := range m.Events {
		if err := handler(e); err != nil {
			m.Events = m.Events[i:]
			return err
		}
	}
	m.Events = nil
	return nil
}

// Len returns the number of events held.
func (m *MockWALRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Events)
}
