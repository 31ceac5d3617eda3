package service

import (
	"alcyxob/workout-ledger/internal/domain"
	"alcyxob/workout-ledger/internal/repository"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// --- Error Definitions ---
var (
	ErrWorkoutIDRequired = errors.New("workout id is required")
	ErrNotAuthenticated  = errors.New("no authenticated user for this session")
	ErrNoDraft           = errors.New("no workout draft in progress")
	ErrServiceClosed     = errors.New("ledger service is closed")
)

// DefaultRemoteTimeout bounds every remote ledger call.
const DefaultRemoteTimeout = 15 * time.Second

// LedgerCache is the durable on-device copy of the ledger.
type LedgerCache interface {
	Load() []domain.WorkoutRecord
	Save(workouts []domain.WorkoutRecord) error
}

// DraftCache holds the single in-progress workout.
type DraftCache interface {
	Load() (*domain.WorkoutRecord, bool)
	Save(draft domain.WorkoutRecord) error
	Clear() error
}

// StatsEngine derives stats from a ledger snapshot.
type StatsEngine interface {
	Compute(workouts []domain.WorkoutRecord) domain.WorkoutStats
}

// LedgerService owns the authoritative in-memory workout list of one session.
//
// Writes are local first: the list and the cache file are updated together
// under one lock, then the change is queued for the remote ledger. Remote
// calls run one at a time in the order they were queued, so the remote sees
// a session's writes in the order they were made. Remote failures only flip
// the status to offline. Every remote snapshot replaces the whole list, so a
// local write that has not reached the remote yet can be overwritten by an
// older snapshot (remote wins).
type LedgerService interface {
	// Load refreshes the list from the remote ledger, falling back to the cache.
	Load(ctx context.Context)
	// LoadCached replaces the list with the cache contents without any network call.
	LoadCached()
	Save(record domain.WorkoutRecord) error
	Update(record domain.WorkoutRecord) error
	ToggleFavorite(record domain.WorkoutRecord) (domain.WorkoutRecord, error)
	Delete(record domain.WorkoutRecord) error
	// SyncAllWorkouts pushes the whole list as one batch.
	SyncAllWorkouts(ctx context.Context) (written int, err error)

	Workouts() []domain.WorkoutRecord
	Workout(id string) (domain.WorkoutRecord, bool)
	Status() domain.SyncStatus
	Stats() domain.WorkoutStats
	// Watch streams (workouts, status) after every change until ctx ends.
	// A slow reader only ever sees the latest update.
	Watch(ctx context.Context) <-chan domain.LedgerUpdate

	SaveDraft(draft domain.WorkoutRecord) (domain.WorkoutRecord, error)
	Draft() (*domain.WorkoutRecord, bool)
	DiscardDraft() error
	FinishDraft() (domain.WorkoutRecord, error)

	// Wait blocks until no remote call is queued or running.
	Wait()
	// Close cancels the change subscription and pending remote calls.
	Close()
}

const (
	subscribeRetryMinDelay = 500 * time.Millisecond
	subscribeRetryMaxDelay = 30 * time.Second
)

// remoteOp is one queued call against the remote ledger.
type remoteOp struct {
	name   string
	userID string
	// ctx, when set, also bounds the call.
	ctx  context.Context
	run  func(ctx context.Context) error
	done chan error
}

func (op remoteOp) finish(err error) {
	if op.done != nil {
		op.done <- err
	}
}

// ledgerService implements the LedgerService interface.
type ledgerService struct {
	cache    LedgerCache
	drafts   DraftCache
	remote   repository.LedgerRepository
	identity IdentityProvider
	engine   StatsEngine
	timeout  time.Duration

	mu       sync.Mutex
	idle     *sync.Cond
	work     *sync.Cond
	queue    []remoteOp
	workouts []domain.WorkoutRecord
	status   domain.SyncStatus
	inflight int
	watchers map[chan domain.LedgerUpdate]struct{}
	closed   bool

	sub         repository.Subscription
	subUser     string
	subscribing bool
	resubscribe chan struct{}

	ctx        context.Context
	cancel     context.CancelFunc
	workerDone chan struct{}
	background sync.WaitGroup
}

// NewLedgerService creates a ledger for one session. remote may be nil, in
// which case the ledger is local only.
func NewLedgerService(
	cache LedgerCache,
	drafts DraftCache,
	remote repository.LedgerRepository,
	identity IdentityProvider,
	engine StatsEngine,
	remoteTimeout time.Duration,
) LedgerService {
	if identity == nil {
		identity = StaticIdentity("")
	}
	if remoteTimeout <= 0 {
		remoteTimeout = DefaultRemoteTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &ledgerService{
		cache:       cache,
		drafts:      drafts,
		remote:      remote,
		identity:    identity,
		engine:      engine,
		timeout:     remoteTimeout,
		workouts:    []domain.WorkoutRecord{},
		status:      domain.SyncOnline,
		watchers:    make(map[chan domain.LedgerUpdate]struct{}),
		resubscribe: make(chan struct{}, 1),
		ctx:         ctx,
		cancel:      cancel,
		workerDone:  make(chan struct{}),
	}
	s.idle = sync.NewCond(&s.mu)
	s.work = sync.NewCond(&s.mu)
	go s.runRemoteQueue()
	return s
}

func (s *ledgerService) userID() (string, bool) {
	if s.remote == nil {
		return "", false
	}
	return s.identity.UserID()
}

// === Loading and remote snapshots ===

func (s *ledgerService) Load(ctx context.Context) {
	userID, ok := s.userID()
	if !ok {
		s.LoadCached()
		return
	}

	done := make(chan error, 1)
	s.mu.Lock()
	queued := s.enqueueLocked(remoteOp{
		name:   "fetch",
		userID: userID,
		ctx:    ctx,
		done:   done,
		run: func(ctx context.Context) error {
			workouts, err := s.remote.FetchAll(ctx, userID)
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.closed {
				return err
			}
			if err != nil {
				s.workouts = s.cache.Load()
			} else {
				s.workouts = domain.CloneWorkouts(workouts)
				s.persistLocked()
			}
			s.publishLocked()
			return err
		},
	})
	s.publishLocked()
	s.mu.Unlock()
	if !queued {
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
		return
	}
	if !s.ensureSubscription(userID) {
		s.retrySubscription(userID)
	}
}

func (s *ledgerService) LoadCached() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.workouts = s.cache.Load()
	s.publishLocked()
}

// ensureSubscription opens the change feed for userID unless one is already
// open. It reports false only when the feed could not be opened.
func (s *ledgerService) ensureSubscription(userID string) bool {
	s.mu.Lock()
	if s.closed || (s.sub != nil && s.subUser == userID) {
		s.mu.Unlock()
		return true
	}
	old := s.sub
	s.sub, s.subUser = nil, ""
	s.mu.Unlock()
	if old != nil {
		old.Cancel()
	}

	sub, err := s.remote.Subscribe(s.ctx, userID,
		func(workouts []domain.WorkoutRecord) { s.applySnapshot(workouts) },
		func(err error) { s.subscriptionFailed(userID, err) },
	)
	if err != nil {
		log.Printf("WARN: Could not subscribe to workout changes for user %s: %v", userID, err)
		return false
	}

	s.mu.Lock()
	if s.closed || s.sub != nil {
		s.mu.Unlock()
		sub.Cancel()
		return true
	}
	s.sub, s.subUser = sub, userID
	s.mu.Unlock()
	log.Printf("INFO: Subscribed to workout changes for user %s", userID)
	return true
}

// retrySubscription keeps reopening the change feed with backoff until it is
// open or the ledger is closed. A successful remote call retries at once.
func (s *ledgerService) retrySubscription(userID string) {
	s.mu.Lock()
	if s.closed || s.subscribing {
		s.mu.Unlock()
		return
	}
	s.subscribing = true
	s.background.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.background.Done()
		defer func() {
			s.mu.Lock()
			s.subscribing = false
			s.mu.Unlock()
		}()
		delay := subscribeRetryMinDelay
		for {
			timer := time.NewTimer(delay)
			select {
			case <-s.ctx.Done():
				timer.Stop()
				return
			case <-s.resubscribe:
				timer.Stop()
			case <-timer.C:
			}
			if s.ensureSubscription(userID) {
				return
			}
			delay = min(delay*2, subscribeRetryMaxDelay)
		}
	}()
}

func (s *ledgerService) applySnapshot(workouts []domain.WorkoutRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.workouts = domain.CloneWorkouts(workouts)
	s.persistLocked()
	s.status = domain.SyncOnline
	s.publishLocked()
}

func (s *ledgerService) subscriptionFailed(userID string, err error) {
	log.Printf("WARN: Workout change feed for user %s failed: %v", userID, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.status = domain.SyncOffline
	s.publishLocked()
}

// === Local-first writes ===

func (s *ledgerService) Save(record domain.WorkoutRecord) error {
	if record.ID == "" {
		return ErrWorkoutIDRequired
	}
	record = record.Clone()
	userID, remote := s.userID()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServiceClosed
	}
	s.upsertLocked(record)
	err := s.persistLocked()
	if remote {
		s.enqueueLocked(remoteOp{
			name:   "put",
			userID: userID,
			run: func(ctx context.Context) error {
				return s.remote.Put(ctx, userID, record)
			},
		})
	}
	s.publishLocked()
	return err
}

func (s *ledgerService) Update(record domain.WorkoutRecord) error {
	return s.Save(record)
}

// ToggleFavorite flips the favorite flag of the ledger's copy of record (or of
// record itself when the ledger doesn't have it) and saves the result.
func (s *ledgerService) ToggleFavorite(record domain.WorkoutRecord) (domain.WorkoutRecord, error) {
	if record.ID == "" {
		return domain.WorkoutRecord{}, ErrWorkoutIDRequired
	}
	if current, ok := s.Workout(record.ID); ok {
		record = current
	}
	record.IsFavorite = !record.IsFavorite
	return record, s.Save(record)
}

// Delete removes record by id. Deleting an id the ledger doesn't hold does nothing.
func (s *ledgerService) Delete(record domain.WorkoutRecord) error {
	if record.ID == "" {
		return ErrWorkoutIDRequired
	}
	id := record.ID
	userID, remote := s.userID()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServiceClosed
	}
	idx := s.indexLocked(id)
	if idx < 0 {
		return nil
	}
	s.workouts = append(s.workouts[:idx:idx], s.workouts[idx+1:]...)
	err := s.persistLocked()
	if remote {
		s.enqueueLocked(remoteOp{
			name:   "delete",
			userID: userID,
			run: func(ctx context.Context) error {
				return s.remote.Delete(ctx, userID, id)
			},
		})
	}
	s.publishLocked()
	return err
}

func (s *ledgerService) SyncAllWorkouts(ctx context.Context) (int, error) {
	userID, ok := s.userID()
	if !ok {
		return 0, ErrNotAuthenticated
	}

	var written int
	done := make(chan error, 1)
	s.mu.Lock()
	batch := domain.CloneWorkouts(s.workouts)
	queued := s.enqueueLocked(remoteOp{
		name:   "batch put",
		userID: userID,
		ctx:    ctx,
		done:   done,
		run: func(ctx context.Context) error {
			var err error
			written, err = s.remote.PutBatch(ctx, userID, batch)
			if skipped := len(batch) - written; err == nil && skipped > 0 {
				log.Printf("WARN: Batch sync for user %s skipped %d of %d workouts", userID, skipped, len(batch))
			}
			return err
		},
	})
	s.publishLocked()
	s.mu.Unlock()
	if !queued {
		return 0, ErrServiceClosed
	}

	select {
	case err := <-done:
		if err != nil {
			return 0, fmt.Errorf("sync all workouts: %w", err)
		}
		return written, nil
	case <-ctx.Done():
		return 0, fmt.Errorf("sync all workouts: %w", ctx.Err())
	}
}

// === Remote queue ===

// enqueueLocked queues op behind every earlier remote call and marks the
// ledger as syncing. It reports false once closed. The caller publishes.
func (s *ledgerService) enqueueLocked(op remoteOp) bool {
	if s.closed {
		return false
	}
	s.queue = append(s.queue, op)
	s.inflight++
	s.status = domain.SyncSyncing
	s.work.Signal()
	return true
}

// runRemoteQueue is the session's only caller of remote writes and fetches.
// On close, the call in progress is canceled and queued ones are dropped.
func (s *ledgerService) runRemoteQueue() {
	defer close(s.workerDone)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.work.Wait()
		}
		if s.closed {
			dropped := s.queue
			s.queue = nil
			s.inflight -= len(dropped)
			s.idle.Broadcast()
			s.mu.Unlock()
			for _, op := range dropped {
				op.finish(ErrServiceClosed)
			}
			return
		}
		op := s.queue[0]
		s.mu.Unlock()

		err := s.call(op)
		if err != nil {
			log.Printf("WARN: Remote %s for user %s failed, keeping local copy: %v", op.name, op.userID, err)
		}

		s.mu.Lock()
		s.queue[0] = remoteOp{}
		s.queue = s.queue[1:]
		s.mu.Unlock()
		s.endRemote(err)
		op.finish(err)
	}
}

func (s *ledgerService) call(op remoteOp) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	if op.ctx != nil {
		stop := context.AfterFunc(op.ctx, cancel)
		defer stop()
	}
	return op.run(ctx)
}

// endRemote records the outcome of a remote call. While more calls are
// queued the status stays syncing; the last one to finish decides.
func (s *ledgerService) endRemote(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if !s.closed && s.inflight == 0 {
		if err != nil {
			s.status = domain.SyncOffline
		} else {
			s.status = domain.SyncOnline
		}
		s.publishLocked()
	}
	s.idle.Broadcast()
	if err == nil && s.sub == nil {
		select {
		case s.resubscribe <- struct{}{}:
		default:
		}
	}
}

// === Reads ===

func (s *ledgerService) Workouts() []domain.WorkoutRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneWorkouts(s.workouts)
}

func (s *ledgerService) Workout(id string) (domain.WorkoutRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(id); idx >= 0 {
		return s.workouts[idx].Clone(), true
	}
	return domain.WorkoutRecord{}, false
}

func (s *ledgerService) Status() domain.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *ledgerService) Stats() domain.WorkoutStats {
	return s.engine.Compute(s.Workouts())
}

func (s *ledgerService) Watch(ctx context.Context) <-chan domain.LedgerUpdate {
	ch := make(chan domain.LedgerUpdate, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	s.watchers[ch] = struct{}{}
	ch <- s.updateLocked()
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.ctx.Done():
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
	}()
	return ch
}

// === Drafts ===

func (s *ledgerService) SaveDraft(draft domain.WorkoutRecord) (domain.WorkoutRecord, error) {
	if s.drafts == nil {
		return domain.WorkoutRecord{}, ErrNoDraft
	}
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	return draft, s.drafts.Save(draft)
}

func (s *ledgerService) Draft() (*domain.WorkoutRecord, bool) {
	if s.drafts == nil {
		return nil, false
	}
	return s.drafts.Load()
}

func (s *ledgerService) DiscardDraft() error {
	if s.drafts == nil {
		return nil
	}
	return s.drafts.Clear()
}

// FinishDraft saves the draft into the ledger and clears it. If the ledger
// cache can't be written the draft is kept.
func (s *ledgerService) FinishDraft() (domain.WorkoutRecord, error) {
	draft, ok := s.Draft()
	if !ok {
		return domain.WorkoutRecord{}, ErrNoDraft
	}
	if err := s.Save(*draft); err != nil {
		return *draft, err
	}
	if err := s.drafts.Clear(); err != nil {
		log.Printf("WARN: Workout %s saved but draft not cleared: %v", draft.ID, err)
	}
	return *draft, nil
}

// === Lifecycle ===

func (s *ledgerService) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.inflight > 0 {
		s.idle.Wait()
	}
}

func (s *ledgerService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	s.sub, s.subUser = nil, ""
	for ch := range s.watchers {
		delete(s.watchers, ch)
		close(ch)
	}
	s.work.Broadcast()
	s.mu.Unlock()

	s.cancel()
	if sub != nil {
		sub.Cancel()
	}
	<-s.workerDone
	s.background.Wait()
	s.Wait()
}

// === Helpers (callers hold s.mu) ===

func (s *ledgerService) indexLocked(id string) int {
	for i := range s.workouts {
		if s.workouts[i].ID == id {
			return i
		}
	}
	return -1
}

// upsertLocked replaces a record in place, or inserts it at the front.
func (s *ledgerService) upsertLocked(record domain.WorkoutRecord) {
	if idx := s.indexLocked(record.ID); idx >= 0 {
		s.workouts[idx] = record
		return
	}
	s.workouts = append([]domain.WorkoutRecord{record}, s.workouts...)
}

func (s *ledgerService) persistLocked() error {
	if err := s.cache.Save(s.workouts); err != nil {
		log.Printf("ERROR: Failed to persist workout cache: %v", err)
		return err
	}
	return nil
}

func (s *ledgerService) updateLocked() domain.LedgerUpdate {
	return domain.LedgerUpdate{Workouts: domain.CloneWorkouts(s.workouts), Status: s.status}
}

// publishLocked hands the latest update to every watcher, replacing any
// update a watcher hasn't read yet.
func (s *ledgerService) publishLocked() {
	if len(s.watchers) == 0 {
		return
	}
	update := s.updateLocked()
	for ch := range s.watchers {
		select {
		case ch <- update:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- update:
		default:
		}
	}
}
