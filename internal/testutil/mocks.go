package testutil

import (
	"context"
	"sync"

	domainErrors "github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/cassiomorais/paygate/internal/domain/payment"
	"github.com/google/uuid"
)

// --- Payment Repository Mock ---

// MockPaymentRepository is an in-memory implementation of payment.Repository.
// Per-call Func hooks override any method for failure injection.
type MockPaymentRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]*payment.Record

	CreateFunc  func(ctx context.Context, rec *payment.Record) error
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*payment.Record, error)
	UpdateFunc  func(ctx context.Context, rec *payment.Record, expected payment.Status) error
	ListFunc    func(ctx context.Context, filter payment.ListFilter) ([]*payment.Record, error)
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{records: make(map[uuid.UUID]*payment.Record)}
}

func (m *MockPaymentRepository) Create(ctx context.Context, rec *payment.Record) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *rec
	m.records[rec.ID] = &clone
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Record, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

func (m *MockPaymentRepository) Update(ctx context.Context, rec *payment.Record, expected payment.Status) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, rec, expected)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.records[rec.ID]
	if !ok {
		return domainErrors.ErrPaymentNotFound
	}
	if current.Status != expected {
		return domainErrors.ErrAlreadyProcessed
	}
	clone := *rec
	m.records[rec.ID] = &clone
	return nil
}

func (m *MockPaymentRepository) List(ctx context.Context, filter payment.ListFilter) ([]*payment.Record, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*payment.Record
	for _, rec := range m.records {
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		if filter.Method != nil && rec.Method != *filter.Method {
			continue
		}
		clone := *rec
		out = append(out, &clone)
	}
	return out, nil
}

// --- Locker Mock ---

// KeyLocker serializes per key with in-process mutexes. It satisfies the
// processor's Locker contract without Redis.
type KeyLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyLocker() *KeyLocker {
	return &KeyLocker{locks: make(map[string]*sync.Mutex)}
}

func (k *KeyLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return func(context.Context) error {
		l.Unlock()
		return nil
	}, nil
}
