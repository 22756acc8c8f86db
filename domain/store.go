package domain

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Persistence is the storage contract the store writes through to. The
// storage package provides implementations.
type Persistence interface {
	Load(ctx context.Context) ([]Task, error)
	Save(ctx context.Context, tasks []Task) error
}

// TaskStore owns the canonical in-memory task collection for a session.
// Every mutation synchronously writes the full collection through to the
// Persistence backend before returning. When a write fails the in-memory
// mutation stays applied and the failure surfaces as a *PersistenceError;
// the store remains authoritative for the rest of the session.
type TaskStore struct {
	mu     sync.Mutex
	tasks  []Task
	p      Persistence
	logger *log.Logger

	now   func() time.Time
	newID func() string
}

// NewTaskStore builds a store over p and loads the persisted collection
// once; afterwards the in-memory collection is the single source of truth.
// A nil logger falls back to the logrus standard logger.
func NewTaskStore(ctx context.Context, p Persistence, logger *log.Logger) *TaskStore {
	if p == nil {
		panic("domain.NewTaskStore: persistence is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &TaskStore{
		p:      p,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	tasks, err := p.Load(ctx)
	if err != nil {
		logger.WithError(err).Warn("load tasks: starting with an empty collection")
		tasks = nil
	}
	s.tasks = tasks
	return s
}

// Create appends a new task with a fresh id, the current timestamp and the
// next manual order. A title that trims to empty is rejected with a
// *ValidationError before anything changes.
func (s *TaskStore) Create(ctx context.Context, title, due string) (task Task, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ctx := newMutationMetrics(ctx, s.logger, "create")
	defer func() { m.Done(len(s.tasks), err) }()

	applyStart := time.Now()
	title = strings.TrimSpace(title)
	if title == "" {
		m.SetErrorStage("validation")
		err = &ValidationError{Field: "title", Reason: "must not be empty"}
		return
	}
	task = Task{
		ID:        s.newID(),
		Title:     title,
		Due:       due,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
		Order:     s.nextOrder(),
	}
	s.tasks = append(s.tasks, task)
	m.ObserveApply(time.Since(applyStart))

	err = s.persist(ctx, m)
	return
}

// Update merges the non-nil patch fields onto the task with the given id.
// It returns ErrTaskNotFound for an unknown id and a *ValidationError when
// the patch title trims to empty; in both cases nothing changes. Order and
// CreatedAt are never touched.
func (s *TaskStore) Update(ctx context.Context, id string, patch TaskPatch) (task Task, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ctx := newMutationMetrics(ctx, s.logger, "update")
	defer func() { m.Done(len(s.tasks), err) }()

	applyStart := time.Now()
	idx := s.indexOf(id)
	if idx < 0 {
		m.SetErrorStage("not_found")
		err = ErrTaskNotFound
		return
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		m.SetErrorStage("validation")
		err = &ValidationError{Field: "title", Reason: "must not be empty"}
		return
	}
	t := &s.tasks[idx]
	if patch.Title != nil {
		t.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Due != nil {
		t.Due = *patch.Due
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	task = *t
	m.ObserveApply(time.Since(applyStart))

	err = s.persist(ctx, m)
	return
}

// Delete removes the task with the given id. An unknown id is a benign
// no-op, not an error. Surviving orders are reindexed to 0..N-1 preserving
// relative order, and the collection is persisted either way.
func (s *TaskStore) Delete(ctx context.Context, id string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ctx := newMutationMetrics(ctx, s.logger, "delete")
	defer func() { m.Done(len(s.tasks), err) }()

	applyStart := time.Now()
	if idx := s.indexOf(id); idx >= 0 {
		s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
		s.reindex()
	}
	m.ObserveApply(time.Since(applyStart))

	err = s.persist(ctx, m)
	return
}

// ClearCompleted removes every completed task, reindexes the survivors and
// persists. It returns how many tasks were removed.
func (s *TaskStore) ClearCompleted(ctx context.Context) (removed int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ctx := newMutationMetrics(ctx, s.logger, "clear_completed")
	defer func() { m.Done(len(s.tasks), err) }()

	applyStart := time.Now()
	kept := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.Completed {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	s.tasks = kept
	if removed > 0 {
		s.reindex()
	}
	m.ObserveApply(time.Since(applyStart))

	err = s.persist(ctx, m)
	return
}

// Reorder applies an externally supplied manual order: the task matching
// ids[i] gets order i. Unknown ids are ignored and tasks absent from ids
// keep their prior order values, so a reorder of a filtered subset can
// leave duplicate or non-contiguous orders; the stable manual sort resolves
// those ties by prior relative position. Always persists.
func (s *TaskStore) Reorder(ctx context.Context, ids []string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ctx := newMutationMetrics(ctx, s.logger, "reorder")
	defer func() { m.Done(len(s.tasks), err) }()

	applyStart := time.Now()
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, seen := pos[id]; !seen {
			pos[id] = i
		}
	}
	for i := range s.tasks {
		if p, ok := pos[s.tasks[i].ID]; ok {
			s.tasks[i].Order = p
		}
	}
	m.ObserveApply(time.Since(applyStart))

	err = s.persist(ctx, m)
	return
}

// All returns a copy of the collection in insertion order.
func (s *TaskStore) All() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Len returns the current collection size.
func (s *TaskStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *TaskStore) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *TaskStore) nextOrder() int {
	next := 0
	for _, t := range s.tasks {
		if t.Order >= next {
			next = t.Order + 1
		}
	}
	return next
}

// reindex rewrites order values to exactly 0..N-1, ranking by the current
// order values and breaking ties by position in the collection.
func (s *TaskStore) reindex() {
	byOrder := make([]int, len(s.tasks))
	for i := range byOrder {
		byOrder[i] = i
	}
	sort.SliceStable(byOrder, func(a, b int) bool {
		return s.tasks[byOrder[a]].Order < s.tasks[byOrder[b]].Order
	})
	for rank, i := range byOrder {
		s.tasks[i].Order = rank
	}
}

func (s *TaskStore) persist(ctx context.Context, m *mutationMetrics) error {
	start := time.Now()
	saveErr := s.p.Save(ctx, s.tasks)
	m.ObservePersist(time.Since(start))
	if saveErr == nil {
		return nil
	}
	m.SetErrorStage("persist")
	s.logger.WithError(saveErr).WithField("op", m.op).Warn("persist failed; keeping in-memory state")
	return &PersistenceError{Op: m.op, Err: saveErr}
}
