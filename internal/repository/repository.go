// Package repository is the persistence boundary for jobs: a store for
// create/read/update/delete plus a change stream, with at most one writer
// per job id at a time.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"op-pipeline-backend/internal/models"
)

var ErrNotFound = errors.New("job not found")

// JobStore persists jobs. Implementations return copies; callers own what
// they get back.
type JobStore interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id uuid.UUID) (*models.Job, error)
	// List returns every job, newest first.
	List(ctx context.Context) ([]models.Job, error)
	Update(ctx context.Context, job *models.Job) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Broadcaster fans change events out to subscribers.
type Broadcaster interface {
	Publish(event models.ChangeEvent)
	Subscribe(buffer int) (<-chan models.ChangeEvent, func())
}

type Repository struct {
	store  JobStore
	events Broadcaster
	now    func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*idLock
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

type Option func(*Repository)

func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

func New(store JobStore, events Broadcaster, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		events: events,
		now:    time.Now,
		locks:  make(map[uuid.UUID]*idLock),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) Create(ctx context.Context, job *models.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	now := r.now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	if err := r.store.Create(ctx, job); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	r.publish(models.ChangeInsert, job.ID, job)
	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return r.store.Get(ctx, id)
}

func (r *Repository) List(ctx context.Context) ([]models.Job, error) {
	return r.store.List(ctx)
}

// Mutate loads the job, applies fn and writes the result back while holding
// the job's writer lock. If fn returns an error nothing is written.
func (r *Repository) Mutate(ctx context.Context, id uuid.UUID, fn func(job *models.Job) error) (*models.Job, error) {
	unlock := r.lock(id)
	defer unlock()

	job, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(job); err != nil {
		return nil, err
	}
	job.ID = id
	job.UpdatedAt = r.now().UTC()

	if err := r.store.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	r.publish(models.ChangeUpdate, id, job)
	return job, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	unlock := r.lock(id)
	defer unlock()

	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	r.publish(models.ChangeDelete, id, nil)
	return nil
}

// Subscribe returns a channel of change events and a func that stops the
// subscription. Slow subscribers miss events instead of blocking writers.
func (r *Repository) Subscribe(buffer int) (<-chan models.ChangeEvent, func()) {
	return r.events.Subscribe(buffer)
}

func (r *Repository) publish(kind models.ChangeType, id uuid.UUID, job *models.Job) {
	if r.events == nil {
		return
	}
	event := models.ChangeEvent{Type: kind, JobID: id, At: r.now().UTC()}
	if job != nil {
		c := job.Clone()
		event.Job = &c
	}
	r.events.Publish(event)
}

func (r *Repository) lock(id uuid.UUID) func() {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &idLock{}
		r.locks[id] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, id)
		}
		r.mu.Unlock()
	}
}
