package worldlink

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ErrNotConnected is returned when a command is sent while the avatar is
// not in the world.
var ErrNotConnected = errors.New("world link is not connected")

// Status is the supervisor's connection state.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	// StatusManuallyStopped is left only by an explicit Start.
	StatusManuallyStopped
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusManuallyStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// State is the per-connection view of the world. A fresh State is created
// for every connection attempt.
type State struct {
	Connected bool
	Balance   decimal.Decimal
}

// Config holds supervisor timing and command templates.
type Config struct {
	// PayCommand is a template with {target} and {amount} placeholders.
	PayCommand     string
	BalanceCommand string

	IdleInterval      time.Duration
	BalancePollDelay  time.Duration
	ReconnectDelay    time.Duration
	ReconnectMaxDelay time.Duration

	BroadcastEnabled  bool
	BroadcastInterval time.Duration
	BroadcastMessage  string
}

// Supervisor owns the single world link.
type Supervisor struct {
	cfg    Config
	dialer Dialer
	retry  backoff.BackOff

	mu        sync.Mutex
	ctx       context.Context
	status    Status
	state     *State
	link      Link
	gen       uint64
	sched     gocron.Scheduler
	reconnect *time.Timer
	onLine    func(string)
}

// NewSupervisor creates a Supervisor in StatusDisconnected.
func NewSupervisor(cfg Config, dialer Dialer) *Supervisor {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.ReconnectDelay
	if cfg.ReconnectMaxDelay > 0 {
		eb.MaxInterval = cfg.ReconnectMaxDelay
	}
	// retry forever; only StatusManuallyStopped ends reconnection
	eb.MaxElapsedTime = 0
	eb.Reset()

	return &Supervisor{
		cfg:    cfg,
		dialer: dialer,
		retry:  eb,
		ctx:    context.Background(),
		status: StatusDisconnected,
		state:  &State{},
	}
}

// OnLine registers the consumer of world chat lines. Lines are delivered in
// arrival order from a single goroutine.
func (s *Supervisor) OnLine(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLine = fn
}

// Start connects unless a connection is already up or in progress.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	if s.status == StatusConnecting || s.status == StatusConnected {
		s.mu.Unlock()
		return
	}
	s.ctx = ctx
	s.retry.Reset()
	gen := s.beginAttemptLocked()
	s.mu.Unlock()

	go s.dial(ctx, gen)
}

// Stop disconnects and suppresses reconnection until the next Start.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	s.status = StatusManuallyStopped
	s.gen++
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	link, sched := s.link, s.sched
	s.link, s.sched = nil, nil
	s.state.Connected = false
	s.mu.Unlock()

	log.Info().Msg("World link stopped by operator")
	shutdown(sched)
	if link != nil {
		_ = link.Close()
	}
}

// Status returns the connection state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Connected reports whether the avatar is in the world.
func (s *Supervisor) Connected() bool {
	return s.Status() == StatusConnected
}

// Balance returns the last known balance of the bot's avatar.
func (s *Supervisor) Balance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Balance
}

// SetBalance records a balance read from chat.
func (s *Supervisor) SetBalance(value decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Balance = value
}

// Pay sends the pay command. Delivery is not confirmed by the world.
func (s *Supervisor) Pay(target string, amount int64) error {
	cmd := strings.NewReplacer(
		"{target}", target,
		"{amount}", strconv.FormatInt(amount, 10),
	).Replace(s.cfg.PayCommand)
	return s.send(cmd)
}

// Broadcast sends text to public chat.
func (s *Supervisor) Broadcast(text string) error {
	return s.send(text)
}

// RequestBalance asks the world for the bot's balance. The answer arrives as
// a chat line.
func (s *Supervisor) RequestBalance() error {
	return s.send(s.cfg.BalanceCommand)
}

func (s *Supervisor) send(text string) error {
	s.mu.Lock()
	link, connected := s.link, s.status == StatusConnected
	s.mu.Unlock()
	if !connected || link == nil {
		return ErrNotConnected
	}
	log.Debug().Str("command", text).Msg("World send")
	return link.Send(text)
}

// beginAttemptLocked moves to StatusConnecting with a fresh State and
// returns the new link generation.
func (s *Supervisor) beginAttemptLocked() uint64 {
	s.gen++
	s.status = StatusConnecting
	s.state = &State{}
	s.link = nil
	return s.gen
}

func (s *Supervisor) dial(ctx context.Context, gen uint64) {
	log.Info().Uint64("attempt", gen).Msg("Connecting to world")
	link, err := s.dialer.Dial(ctx)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		if link != nil {
			_ = link.Close()
		}
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("World connection failed")
		s.status = StatusDisconnected
		s.scheduleReconnectLocked()
		s.mu.Unlock()
		return
	}
	s.link = link
	s.mu.Unlock()

	s.pump(gen, link)
}

// pump drains link events until the link closes.
func (s *Supervisor) pump(gen uint64, link Link) {
	for ev := range link.Events() {
		switch ev.Kind {
		case EventSpawned:
			s.onSpawn(gen, link)
		case EventLine:
			s.mu.Lock()
			current, fn := gen == s.gen, s.onLine
			s.mu.Unlock()
			if current && fn != nil {
				fn(ev.Text)
			}
		case EventEnded:
			s.onEnded(gen, ev.Err)
		}
	}
	// a link that closes without EventEnded has still dropped
	s.onEnded(gen, nil)
}

func (s *Supervisor) onSpawn(gen uint64, link Link) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.status != StatusConnecting {
		return
	}

	sched, err := s.newScheduler(link)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start world timers")
	}
	s.sched = sched
	s.status = StatusConnected
	s.state.Connected = true
	s.retry.Reset()

	log.Info().Msg("Spawned in world")
}

// newScheduler starts the per-connection timers. A job that fails to
// register is reported in the error; the others still run.
func (s *Supervisor) newScheduler(link Link) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	var errs []error
	if s.cfg.IdleInterval > 0 {
		if _, err := sched.NewJob(
			gocron.DurationJob(s.cfg.IdleInterval),
			gocron.NewTask(func() {
				if err := link.KeepAlive(); err != nil {
					log.Warn().Err(err).Msg("Keep-alive failed")
				}
			}),
		); err != nil {
			errs = append(errs, fmt.Errorf("keep-alive job: %w", err))
		}
	}

	if s.cfg.BroadcastEnabled && s.cfg.BroadcastInterval > 0 && s.cfg.BroadcastMessage != "" {
		if _, err := sched.NewJob(
			gocron.DurationJob(s.cfg.BroadcastInterval),
			gocron.NewTask(func() {
				if err := link.Send(s.cfg.BroadcastMessage); err != nil {
					log.Warn().Err(err).Msg("Broadcast failed")
				}
			}),
		); err != nil {
			errs = append(errs, fmt.Errorf("broadcast job: %w", err))
		}
	}

	if s.cfg.BalanceCommand != "" {
		if _, err := sched.NewJob(
			gocron.OneTimeJob(balancePollStart(s.cfg.BalancePollDelay)),
			gocron.NewTask(func() {
				if err := link.Send(s.cfg.BalanceCommand); err != nil {
					log.Warn().Err(err).Msg("Balance poll failed")
				}
			}),
		); err != nil {
			errs = append(errs, fmt.Errorf("balance poll job: %w", err))
		}
	}

	sched.Start()
	return sched, errors.Join(errs...)
}

// balancePollStart runs the poll right away when no delay is configured;
// gocron rejects one-time jobs that start in the past.
func balancePollStart(delay time.Duration) gocron.OneTimeJobStartAtOption {
	if delay <= 0 {
		return gocron.OneTimeJobStartImmediately()
	}
	return gocron.OneTimeJobStartDateTime(time.Now().Add(delay))
}

func (s *Supervisor) onEnded(gen uint64, reason error) {
	s.mu.Lock()
	if gen != s.gen || (s.status != StatusConnecting && s.status != StatusConnected) {
		s.mu.Unlock()
		return
	}
	link, sched := s.link, s.sched
	s.link, s.sched = nil, nil
	s.state.Connected = false
	s.status = StatusDisconnected
	s.scheduleReconnectLocked()
	s.mu.Unlock()

	log.Warn().Err(reason).Msg("World link dropped")
	shutdown(sched)
	if link != nil {
		_ = link.Close()
	}
}

func (s *Supervisor) scheduleReconnectLocked() {
	delay := s.retry.NextBackOff()
	if delay == backoff.Stop {
		delay = s.cfg.ReconnectDelay
	}
	gen := s.gen
	log.Info().Dur("delay", delay).Msg("Reconnect scheduled")

	s.reconnect = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if gen != s.gen || s.status != StatusDisconnected {
			s.mu.Unlock()
			return
		}
		s.reconnect = nil
		ctx := s.ctx
		next := s.beginAttemptLocked()
		s.mu.Unlock()

		s.dial(ctx, next)
	})
}

func shutdown(sched gocron.Scheduler) {
	if sched == nil {
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("Failed to stop world timers")
	}
}
