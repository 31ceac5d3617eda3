// Package memory is an in-process LedgerRepository. It backs the "memory"
// remote driver for local development and stands in for MongoDB in tests.
package memory

import (
	"alcyxob/workout-ledger/internal/domain"
	"alcyxob/workout-ledger/internal/repository"
	"context"
	"log"
	"sync"
)

// LedgerRepository keeps every user's collection in memory.
type LedgerRepository struct {
	mu          sync.Mutex
	collections map[string]map[string]domain.WorkoutRecord
	subscribers map[string]map[*subscription]struct{}
	unavailable bool
}

// NewLedgerRepository returns an empty, reachable repository.
func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{
		collections: make(map[string]map[string]domain.WorkoutRecord),
		subscribers: make(map[string]map[*subscription]struct{}),
	}
}

var _ repository.LedgerRepository = (*LedgerRepository)(nil)

// SetAvailable simulates connectivity. While unavailable every call fails
// with repository.ErrUnavailable.
func (r *LedgerRepository) SetAvailable(available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unavailable = !available
}

// InjectError delivers err to every open subscription for userID.
func (r *LedgerRepository) InjectError(userID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sub := range r.subscribers[userID] {
		sub.push(event{err: err})
	}
}

// Seed stores records directly without notifying subscribers.
func (r *LedgerRepository) Seed(userID string, records ...domain.WorkoutRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	coll := r.collectionLocked(userID)
	for _, rec := range records {
		coll[rec.ID] = rec.Clone()
	}
}

func (r *LedgerRepository) FetchAll(ctx context.Context, userID string) ([]domain.WorkoutRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unavailable {
		return nil, repository.ErrUnavailable
	}
	return r.snapshotLocked(userID), nil
}

func (r *LedgerRepository) Put(ctx context.Context, userID string, record domain.WorkoutRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := repository.ValidateRecord(record); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unavailable {
		return repository.ErrUnavailable
	}
	r.collectionLocked(userID)[record.ID] = record.Clone()
	r.notifyLocked(userID)
	return nil
}

func (r *LedgerRepository) Delete(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unavailable {
		return repository.ErrUnavailable
	}
	coll := r.collectionLocked(userID)
	if _, ok := coll[id]; !ok {
		return nil
	}
	delete(coll, id)
	r.notifyLocked(userID)
	return nil
}

func (r *LedgerRepository) PutBatch(ctx context.Context, userID string, records []domain.WorkoutRecord) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unavailable {
		return 0, repository.ErrUnavailable
	}
	coll := r.collectionLocked(userID)
	written := 0
	for _, rec := range records {
		if err := repository.ValidateRecord(rec); err != nil {
			log.Printf("WARN: Skipping workout %q in batch for user %s: %v", rec.ID, userID, err)
			continue
		}
		coll[rec.ID] = rec.Clone()
		written++
	}
	if written > 0 {
		r.notifyLocked(userID)
	}
	return written, nil
}

func (r *LedgerRepository) Subscribe(ctx context.Context, userID string, onSnapshot func([]domain.WorkoutRecord), onError func(error)) (repository.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unavailable {
		return nil, repository.ErrUnavailable
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	if r.subscribers[userID] == nil {
		r.subscribers[userID] = make(map[*subscription]struct{})
	}
	r.subscribers[userID][sub] = struct{}{}
	sub.push(event{records: r.snapshotLocked(userID)})

	go func() {
		sub.run(subCtx, onSnapshot, onError)
		r.mu.Lock()
		delete(r.subscribers[userID], sub)
		r.mu.Unlock()
	}()
	return sub, nil
}

func (r *LedgerRepository) collectionLocked(userID string) map[string]domain.WorkoutRecord {
	coll, ok := r.collections[userID]
	if !ok {
		coll = make(map[string]domain.WorkoutRecord)
		r.collections[userID] = coll
	}
	return coll
}

func (r *LedgerRepository) snapshotLocked(userID string) []domain.WorkoutRecord {
	coll := r.collections[userID]
	out := make([]domain.WorkoutRecord, 0, len(coll))
	for _, rec := range coll {
		out = append(out, rec.Clone())
	}
	repository.SortNewestFirst(out)
	return out
}

func (r *LedgerRepository) notifyLocked(userID string) {
	for sub := range r.subscribers[userID] {
		sub.push(event{records: r.snapshotLocked(userID)})
	}
}

type event struct {
	records []domain.WorkoutRecord
	err     error
}

// subscription delivers queued events in order on its own goroutine so
// publishers never block on a slow consumer.
type subscription struct {
	mu     sync.Mutex
	queue  []event
	signal chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
}

func (s *subscription) push(ev event) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscription) run(ctx context.Context, onSnapshot func([]domain.WorkoutRecord), onError func(error)) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.signal:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			ev := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			if ctx.Err() != nil {
				return
			}
			if ev.err != nil {
				onError(ev.err)
			} else {
				onSnapshot(ev.records)
			}
		}
	}
}

func (s *subscription) Cancel() {
	s.cancel()
	<-s.done
}
