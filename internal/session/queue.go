package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"wager-bridge-bot/internal/game"
	"wager-bridge-bot/internal/model"
	"wager-bridge-bot/internal/payment"
	"wager-bridge-bot/internal/pkg/lock"
)

// Errors returned by Queue.Enqueue.
var (
	ErrUnknownVariant = errors.New("unknown game variant")
	ErrAlreadyQueued  = errors.New("requester already has a queued or active session")
	ErrQueueStopped   = errors.New("queue is stopped")
)

const inboxSize = 16

// QueueConfig holds admission and session policy.
type QueueConfig struct {
	// PoolSize is the number of sessions allowed to run at once.
	// The house balance check is only sound with a pool of 1.
	PoolSize     int
	HouseEdge    decimal.Decimal
	RoundDelay   time.Duration
	CleanupDelay time.Duration

	// SpaceRetries bounds discussion-space creation attempts after the first.
	SpaceRetries       uint64
	SpaceRetryInterval time.Duration
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Registry *game.Registry
	Notifier Notifier
	Spaces   Spaces
	World    WorldLink
	Reporter Reporter
	Matcher  *payment.Matcher
}

// Status is a snapshot of the queue.
type Status struct {
	Waiting int
	Active  int
}

type actor struct {
	id       string
	entry    model.QueueEntry
	resolver game.Resolver
	inbox    chan Event
	done     chan struct{}

	// set under Queue.mu once the space exists
	session *Session
	spaceID string
}

func (a *actor) post(ev Event) bool {
	select {
	case a.inbox <- ev:
		return true
	case <-a.done:
		return false
	}
}

// Queue admits entries in FIFO order into at most PoolSize concurrent
// sessions and runs each session as its own actor goroutine.
type Queue struct {
	cfg    QueueConfig
	deps   Deps
	claims *lock.KeyLock

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	stopped  bool
	waiting  []model.QueueEntry
	slots    map[string]*actor
	spaces   map[string]*actor
	members  map[string]struct{}
	onChange func(Status)

	wg sync.WaitGroup
}

// NewQueue creates a Queue. Nothing is admitted until Start.
func NewQueue(cfg QueueConfig, deps Deps) *Queue {
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}
	if cfg.SpaceRetryInterval <= 0 {
		cfg.SpaceRetryInterval = time.Second
	}
	if deps.Matcher == nil {
		deps.Matcher = payment.NewMatcher(nil)
	}
	return &Queue{
		cfg:     cfg,
		deps:    deps,
		claims:  lock.NewKeyLock(),
		slots:   make(map[string]*actor),
		spaces:  make(map[string]*actor),
		members: make(map[string]struct{}),
	}
}

// OnChange registers a callback invoked after every admission or release.
func (q *Queue) OnChange(fn func(Status)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onChange = fn
}

// Start begins admitting entries. Sessions stop when ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.admitLocked()
	status, fn := q.statusLocked(), q.onChange
	q.mu.Unlock()

	notify(fn, status)
}

// Stop cancels every running session and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	cancel := q.cancel
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	q.wg.Wait()
}

// Enqueue adds an entry and returns its 1-based waiting position, or 0 when
// it was admitted immediately.
func (q *Queue) Enqueue(entry model.QueueEntry) (int, error) {
	if _, ok := q.deps.Registry.Get(game.Variant(entry.Variant)); !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownVariant, entry.Variant)
	}
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now()
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return 0, ErrQueueStopped
	}
	if _, dup := q.members[entry.RequesterID]; dup {
		q.mu.Unlock()
		return 0, ErrAlreadyQueued
	}
	q.members[entry.RequesterID] = struct{}{}
	q.waiting = append(q.waiting, entry)
	q.admitLocked()

	position := 0
	for i, e := range q.waiting {
		if e.RequesterID == entry.RequesterID {
			position = i + 1
			break
		}
	}
	status, fn := q.statusLocked(), q.onChange
	q.mu.Unlock()

	log.Info().
		Str("requester_id", entry.RequesterID).
		Str("variant", entry.Variant).
		Int("position", position).
		Msg("Entry queued")

	notify(fn, status)
	return position, nil
}

// Status returns the current queue sizes.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.statusLocked()
}

func (q *Queue) statusLocked() Status {
	return Status{Waiting: len(q.waiting), Active: len(q.slots)}
}

// Dispatch delivers an event to the session owning the discussion space.
// It reports false when no session owns the space.
func (q *Queue) Dispatch(spaceID string, ev Event) bool {
	q.mu.Lock()
	a, ok := q.spaces[spaceID]
	q.mu.Unlock()
	if !ok {
		return false
	}
	return a.post(ev)
}

// DeliverPayment implements payment.Sink.
func (q *Queue) DeliverPayment(sessionID string, value decimal.Decimal, line string) bool {
	q.mu.Lock()
	a, ok := q.slots[sessionID]
	q.mu.Unlock()
	if !ok {
		return false
	}
	return a.post(PaymentObserved{Amount: value, Line: line})
}

// AwaitingDeposit implements payment.CandidateSource.
func (q *Queue) AwaitingDeposit() []payment.Candidate {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []payment.Candidate
	for id, a := range q.slots {
		if a.session == nil || a.session.State() != StateAwaitingDeposit {
			continue
		}
		out = append(out, payment.Candidate{SessionID: id, Identifier: a.session.Identifier()})
	}
	return out
}

func (q *Queue) admitLocked() {
	if q.ctx == nil || q.stopped {
		return
	}
	for len(q.slots) < q.cfg.PoolSize && len(q.waiting) > 0 {
		entry := q.waiting[0]
		q.waiting = q.waiting[1:]

		resolver, ok := q.deps.Registry.Get(game.Variant(entry.Variant))
		if !ok {
			delete(q.members, entry.RequesterID)
			continue
		}

		a := &actor{
			id:       uuid.NewString(),
			entry:    entry,
			resolver: resolver,
			inbox:    make(chan Event, inboxSize),
			done:     make(chan struct{}),
		}
		q.slots[a.id] = a
		q.wg.Add(1)
		go q.run(q.ctx, a)

		log.Info().
			Str("session_id", a.id).
			Str("requester_id", entry.RequesterID).
			Str("variant", entry.Variant).
			Msg("Session admitted")
	}
}

func (q *Queue) run(ctx context.Context, a *actor) {
	defer q.wg.Done()
	defer q.release(a)

	spaceID, err := q.openSpace(ctx, a.entry)
	if err != nil {
		log.Error().
			Err(err).
			Str("session_id", a.id).
			Str("requester_id", a.entry.RequesterID).
			Msg("Dropping entry, could not open a discussion space")
		return
	}

	s := New(Options{
		ID:         a.id,
		Entry:      a.entry,
		SpaceID:    spaceID,
		Resolver:   a.resolver,
		HouseEdge:  q.cfg.HouseEdge,
		RoundDelay: q.cfg.RoundDelay,
		Notifier:   q.deps.Notifier,
		World:      q.deps.World,
		Reporter:   q.deps.Reporter,
		Matcher:    q.deps.Matcher,
		Claims:     q.claims,
	})

	q.mu.Lock()
	a.session = s
	a.spaceID = spaceID
	q.spaces[spaceID] = a
	q.mu.Unlock()

	if err := s.Start(ctx); err != nil {
		log.Warn().Err(err).Str("session_id", a.id).Msg("Failed to start session")
	}

	for !s.State().Terminal() {
		select {
		case <-ctx.Done():
			log.Warn().
				Str("session_id", a.id).
				Str("state", s.State().String()).
				Msg("Session interrupted")
			return
		case ev := <-a.inbox:
			if err := s.Handle(ctx, ev); err != nil {
				log.Warn().Err(err).Str("session_id", a.id).Msg("Session event failed")
			}
		}
	}

	if q.cfg.CleanupDelay > 0 {
		t := time.NewTimer(q.cfg.CleanupDelay)
		select {
		case <-ctx.Done():
		case <-t.C:
		}
		t.Stop()
	}
	if err := q.deps.Spaces.CloseSpace(ctx, spaceID); err != nil {
		log.Warn().Err(err).Str("session_id", a.id).Msg("Failed to close discussion space")
	}
}

func (q *Queue) openSpace(ctx context.Context, entry model.QueueEntry) (string, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = q.cfg.SpaceRetryInterval
	eb.Reset()
	b := backoff.WithContext(backoff.WithMaxRetries(eb, q.cfg.SpaceRetries), ctx)

	var spaceID string
	err := backoff.RetryNotify(func() error {
		id, err := q.deps.Spaces.OpenSpace(ctx, entry)
		if err != nil {
			return err
		}
		spaceID = id
		return nil
	}, b, func(err error, next time.Duration) {
		log.Warn().Err(err).Dur("retry_in", next).Msg("Failed to open discussion space")
	})
	if err != nil {
		return "", fmt.Errorf("open space: %w", err)
	}
	return spaceID, nil
}

func (q *Queue) release(a *actor) {
	q.mu.Lock()
	if a.session != nil {
		a.session.Release()
	}
	delete(q.slots, a.id)
	if a.spaceID != "" {
		delete(q.spaces, a.spaceID)
	}
	delete(q.members, a.entry.RequesterID)
	close(a.done)
	q.admitLocked()
	status, fn := q.statusLocked(), q.onChange
	q.mu.Unlock()

	log.Info().Str("session_id", a.id).Msg("Session released")
	notify(fn, status)
}

func notify(fn func(Status), status Status) {
	if fn != nil {
		fn(status)
	}
}
