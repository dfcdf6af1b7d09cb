// Package taskstore persists Task records to a single JSON file with
// atomic (tmp -> rename) writes, serialized behind a write queue so no two
// goroutines ever race on the file, and exposes full task CRUD.
package taskstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// ErrNotFound is returned when a task id does not exist.
var ErrNotFound = fmt.Errorf("task not found")

// ErrActiveTaskExists is returned by Create when a non-terminal task
// already exists for the same (marketId, type).
var ErrActiveTaskExists = fmt.Errorf("an active task already exists for this market and type")

// ErrNotTerminal is returned by Delete when the task is not in a terminal
// state.
var ErrNotTerminal = fmt.Errorf("task is not terminal")

// ErrCircuitBreakerOpen is returned by Create when the attached CreateGate
// reports the wallet balance floor has been breached. The breaker gates
// task creation, not task execution.
var ErrCircuitBreakerOpen = fmt.Errorf("task creation halted: balance circuit breaker open")

// CreateGate is consulted by Create before any new task is admitted.
// internal/circuitbreaker.BalanceCircuitBreaker implements this.
type CreateGate interface {
	IsEnabled() bool
}

// AuditSink mirrors every task:updated event to a durable secondary store.
// internal/storage's Postgres backend implements this interface, kept as
// an optional audit trail rather than the source of truth.
type AuditSink interface {
	RecordTaskEvent(ctx context.Context, event TaskEvent) error
}

// TaskEvent is what gets mirrored to the audit sink on every mutation.
type TaskEvent struct {
	Task types.Task
	At   time.Time
	Kind string // "created" | "updated" | "cancelled" | "deleted"
}

// Store is the single-writer, atomically-persisted task store.
type Store struct {
	path   string
	logger *zap.Logger

	mu    sync.RWMutex
	tasks map[string]*types.Task

	writeMu sync.Mutex // serializes persistence writes (single-writer queue)

	audit AuditSink
	gate  CreateGate

	subMu sync.Mutex
	subs  []chan *types.Task
}

// Config configures a Store.
type Config struct {
	Path   string
	Logger *zap.Logger
}

// New builds an empty, unpersisted Store. Call Load to recover from disk.
func New(cfg Config) *Store {
	return &Store{
		path:   cfg.Path,
		logger: cfg.Logger,
		tasks:  make(map[string]*types.Task),
	}
}

// WithAuditSink attaches a durable secondary sink mirroring every mutation.
func (s *Store) WithAuditSink(sink AuditSink) *Store {
	s.audit = sink
	return s
}

// WithCreateGate attaches a gate consulted on every Create call. A nil gate
// (the default) admits every task.
func (s *Store) WithCreateGate(gate CreateGate) *Store {
	s.gate = gate
	return s
}

// Load recovers the store's state from disk, if a persisted file exists.
func (s *Store) Load() error {
	tasks, err := loadFromDisk(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = tasks
	return nil
}

// Create validates and inserts a new task, enforcing the idempotent-id and
// active-uniqueness invariants.
func (s *Store) Create(ctx context.Context, input types.TaskCreateInput) (*types.Task, error) {
	if s.gate != nil && !s.gate.IsEnabled() {
		CreateRejectedTotal.WithLabelValues("circuit_breaker_open").Inc()
		return nil, ErrCircuitBreakerOpen
	}

	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	now := time.Now()
	id := types.IdempotencyHash(input.MarketID, input.Type, input.PredictPrice, input.Quantity, now)

	s.mu.Lock()
	if existing, ok := s.tasks[id]; ok {
		s.mu.Unlock()
		CreateIdempotentHitsTotal.Inc()
		return existing, nil
	}

	for _, t := range s.tasks {
		if t.MarketID == input.MarketID && t.Type == input.Type && !t.Status.IsTerminal() {
			s.mu.Unlock()
			CreateRejectedTotal.WithLabelValues("active_exists").Inc()
			return nil, ErrActiveTaskExists
		}
	}

	task := &types.Task{
		ID:            id,
		MarketID:      input.MarketID,
		Type:          input.Type,
		Strategy:      input.Strategy,
		ArbSide:       input.ArbSide,
		Quantity:      input.Quantity,
		TotalQuantity: input.Quantity,
		PredictPrice:  input.PredictPrice,
		HedgeMaxAsk:   input.HedgeMaxAsk,
		HedgeMinBid:   input.HedgeMinBid,
		EntryCost:     input.EntryCost,
		ExpiresAt:     input.ExpiresAt,
		RemainingQty:  0,
		Status:        types.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := task.CheckInvariants(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	s.tasks[id] = task
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return nil, err
	}
	TasksCreatedTotal.WithLabelValues(string(input.Type), string(input.Strategy)).Inc()
	s.publish(task)
	s.mirror(ctx, *task, "created")

	return task, nil
}

// Get returns a copy of a task by id.
func (s *Store) Get(id string) (*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// Patch merges fields into a task via the supplied mutator, then timestamps
// and persists it, emitting task:updated.
func (s *Store) Patch(ctx context.Context, id string, mutate func(*types.Task)) (*types.Task, error) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	mutate(t)
	t.UpdatedAt = time.Now()

	if err := t.CheckInvariants(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	cp := *t
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return nil, err
	}
	TasksUpdatedTotal.Inc()
	s.publish(&cp)
	s.mirror(ctx, cp, "updated")

	return &cp, nil
}

// Cancel moves a non-terminal task to CANCELLED.
func (s *Store) Cancel(ctx context.Context, id string) (*types.Task, error) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if t.Status.IsTerminal() {
		s.mu.Unlock()
		return nil, fmt.Errorf("task %s is already terminal (%s)", id, t.Status)
	}
	t.Status = types.StatusCancelled
	t.UpdatedAt = time.Now()
	cp := *t
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return nil, err
	}
	TasksCancelledTotal.Inc()
	s.publish(&cp)
	s.mirror(ctx, cp, "cancelled")

	return &cp, nil
}

// Delete removes a terminal task from the store.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if !t.Status.IsTerminal() {
		s.mu.Unlock()
		return ErrNotTerminal
	}
	cp := *t
	delete(s.tasks, id)
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return err
	}
	TasksDeletedTotal.Inc()
	s.mirror(ctx, cp, "deleted")
	return nil
}

// List returns a snapshot of all tasks.
func (s *Store) List() []*types.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		cp := *t
		out = append(out, &cp)
	}
	return out
}

// GetRecoverable returns every non-terminal task, PENDING ones included,
// for startup recovery.
func (s *Store) GetRecoverable() []*types.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Task, 0)
	for _, t := range s.tasks {
		if t.Status.IsTerminal() {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out
}

// Subscribe returns a channel receiving every created/updated/cancelled task.
func (s *Store) Subscribe() <-chan *types.Task {
	ch := make(chan *types.Task, 256)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

func (s *Store) publish(t *types.Task) {
	cp := *t
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- &cp:
		default:
			EventsDroppedTotal.Inc()
		}
	}
}

func (s *Store) mirror(ctx context.Context, t types.Task, kind string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordTaskEvent(ctx, TaskEvent{Task: t, At: time.Now(), Kind: kind}); err != nil {
		s.logger.Warn("taskstore-audit-mirror-failed", zap.String("task-id", t.ID), zap.Error(err))
		AuditMirrorErrorsTotal.Inc()
	}
}

// persist serializes the whole store to disk. Writes are single-writer via
// writeMu so concurrent Create/Patch/Cancel calls never interleave file
// writes.
func (s *Store) persist() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	snapshot := make(map[string]*types.Task, len(s.tasks))
	for k, v := range s.tasks {
		cp := *v
		snapshot[k] = &cp
	}
	s.mu.RUnlock()

	start := time.Now()
	err := writeToDisk(s.path, snapshot)
	PersistDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		PersistErrorsTotal.Inc()
		return fmt.Errorf("persist task store: %w", err)
	}
	return nil
}
