// Package session implements the wager session state machine and the FIFO
// admission queue that runs sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"wager-bridge-bot/internal/amount"
	"wager-bridge-bot/internal/game"
	"wager-bridge-bot/internal/model"
	"wager-bridge-bot/internal/payment"
	"wager-bridge-bot/internal/pkg/lock"
)

// Errors returned by Session.Handle.
var (
	ErrIdentifierInUse   = errors.New("identifier is used by another session")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Option identifiers used in choice prompts.
const (
	OptionConfirm = "confirm"
	OptionRefund  = "refund"
	OptionPost    = "post"
	OptionAnon    = "anon"
	OptionSkip    = "skip"
)

var (
	confirmChoices = []game.Choice{
		{ID: OptionConfirm, Label: "✅ Confirm"},
		{ID: OptionRefund, Label: "↩️ Refund"},
	}
	feedbackChoices = []game.Choice{
		{ID: OptionPost, Label: "📣 Post"},
		{ID: OptionAnon, Label: "🕶️ Post anonymously"},
		{ID: OptionSkip, Label: "Skip"},
	}
)

// Round is the reported result of one played round.
type Round struct {
	Index   int
	Outcome game.Outcome
}

// Options holds everything needed to build a Session.
type Options struct {
	ID         string
	Entry      model.QueueEntry
	SpaceID    string
	Resolver   game.Resolver
	HouseEdge  decimal.Decimal
	RoundDelay time.Duration

	Notifier Notifier
	World    WorldLink
	Reporter Reporter
	Matcher  *payment.Matcher
	Claims   *lock.KeyLock
}

// Session is one player's pass through deposit, play and payout.
// Handle must not be called concurrently; the queue feeds every session
// from a single goroutine.
type Session struct {
	ID        string
	OwnerID   string
	OwnerName string
	SpaceID   string
	Variant   game.Variant

	Deposit     decimal.Decimal
	Rounds      int
	Stake       decimal.Decimal
	Refund      decimal.Decimal
	Params      game.Params
	TotalPayout decimal.Decimal
	NetProfit   decimal.Decimal
	Results     []Round

	resolver   game.Resolver
	payoutRate decimal.Decimal
	roundDelay time.Duration
	notifier   Notifier
	world      WorldLink
	reporter   Reporter
	matcher    *payment.Matcher
	claims     *lock.KeyLock
	hand       game.Hand

	// state and identifier are read by the payment router goroutine.
	mu         sync.RWMutex
	state      State
	identifier string
	claimed    bool
}

// New creates a session in StateQueued.
func New(opts Options) *Session {
	matcher := opts.Matcher
	if matcher == nil {
		matcher = payment.NewMatcher(nil)
	}
	claims := opts.Claims
	if claims == nil {
		claims = lock.NewKeyLock()
	}
	return &Session{
		ID:          opts.ID,
		OwnerID:     opts.Entry.RequesterID,
		OwnerName:   opts.Entry.RequesterName,
		SpaceID:     opts.SpaceID,
		Variant:     opts.Resolver.Variant(),
		Deposit:     decimal.Zero,
		Stake:       decimal.Zero,
		Refund:      decimal.Zero,
		TotalPayout: decimal.Zero,
		NetProfit:   decimal.Zero,
		resolver:    opts.Resolver,
		payoutRate:  decimal.NewFromInt(1).Sub(opts.HouseEdge),
		roundDelay:  opts.RoundDelay,
		notifier:    opts.Notifier,
		world:       opts.World,
		reporter:    opts.Reporter,
		matcher:     matcher,
		claims:      claims,
		state:       StateQueued,
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Identifier returns the claimed in-world name, or "" before it is set.
func (s *Session) Identifier() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identifier
}

func (s *Session) advance(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next <= s.state || s.state.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, next)
	}
	log.Debug().
		Str("session_id", s.ID).
		Str("from", s.state.String()).
		Str("to", next.String()).
		Msg("Session transition")
	s.state = next
	return nil
}

// Release gives up the identifier claim. Safe to call more than once.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed {
		s.claims.Unlock(s.identifier)
		s.claimed = false
	}
}

// Start moves an admitted session to StateAwaitingIdentifier and asks the
// owner for their in-world name.
func (s *Session) Start(ctx context.Context) error {
	if err := s.advance(StateAwaitingIdentifier); err != nil {
		return err
	}
	return s.say(ctx, fmt.Sprintf(
		"🎲 Welcome to %s, %s!\n%s\n\nReply with your in-game name to begin.",
		s.resolver.Name(), s.OwnerName, s.resolver.Description(),
	))
}

// Handle consumes one event. Events from anyone other than the owner are
// ignored, as are events that mean nothing in the current state.
func (s *Session) Handle(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case OwnerReplied:
		if e.ActorID != s.OwnerID {
			return nil
		}
		return s.onReply(ctx, strings.TrimSpace(e.Text))
	case ChoiceSelected:
		if e.ActorID != s.OwnerID {
			return nil
		}
		return s.onChoice(ctx, e.OptionID)
	case PaymentObserved:
		return s.onPayment(ctx, e)
	}
	return nil
}

func (s *Session) onReply(ctx context.Context, text string) error {
	switch s.State() {
	case StateAwaitingIdentifier:
		return s.claimIdentifier(ctx, text)
	case StateAwaitingRoundCount:
		return s.chooseRounds(ctx, text)
	case StateAwaitingParameters:
		return s.chooseParam(ctx, strings.ToLower(text))
	}
	return nil
}

func (s *Session) onChoice(ctx context.Context, option string) error {
	switch s.State() {
	case StateAwaitingParameters:
		return s.chooseParam(ctx, option)
	case StateAwaitingConfirmation:
		switch option {
		case OptionConfirm:
			return s.confirm(ctx)
		case OptionRefund:
			s.refundDeposit()
			if err := s.advance(StateCancelled); err != nil {
				return err
			}
			return s.say(ctx, "↩️ Your deposit has been refunded. Session closed.")
		}
	case StateInProgress:
		if s.hand != nil {
			return s.act(ctx, option)
		}
	case StateAwaitingFeedback:
		return s.feedback(ctx, option)
	}
	return nil
}

func (s *Session) claimIdentifier(ctx context.Context, name string) error {
	if name == "" {
		return s.say(ctx, "Please reply with your in-game name.")
	}
	if !s.claims.TryLock(name) {
		if err := s.say(ctx, fmt.Sprintf("❌ %s is already in a game. Reply with a different name.", name)); err != nil {
			return err
		}
		return ErrIdentifierInUse
	}

	s.mu.Lock()
	s.identifier = name
	s.claimed = true
	s.mu.Unlock()

	if err := s.advance(StateAwaitingDeposit); err != nil {
		return err
	}
	return s.say(ctx, fmt.Sprintf(
		"💸 Got it, %s. Pay the house in-game now, your deposit is detected automatically.", name,
	))
}

func (s *Session) onPayment(ctx context.Context, e PaymentObserved) error {
	if s.State() != StateAwaitingDeposit {
		return nil
	}
	if !e.Amount.IsPositive() || !s.matcher.IsPaymentFrom(e.Line, s.Identifier()) {
		return nil
	}

	s.Deposit = e.Amount
	log.Info().
		Str("session_id", s.ID).
		Str("identifier", s.Identifier()).
		Str("deposit", s.Deposit.String()).
		Msg("Deposit received")

	if err := s.advance(StateAwaitingRoundCount); err != nil {
		return err
	}
	if err := s.say(ctx, fmt.Sprintf("✅ Received $%s.", amount.Format(s.Deposit))); err != nil {
		return err
	}

	if s.resolver.MaxRounds() == 1 {
		return s.setRounds(ctx, 1)
	}
	return s.say(ctx, s.roundsPrompt())
}

func (s *Session) roundsPrompt() string {
	return fmt.Sprintf("How many rounds? Reply with a number from 1 to %d.", s.resolver.MaxRounds())
}

func (s *Session) chooseRounds(ctx context.Context, text string) error {
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 || n > s.resolver.MaxRounds() {
		return s.say(ctx, "❌ "+s.roundsPrompt())
	}
	return s.setRounds(ctx, n)
}

func (s *Session) setRounds(ctx context.Context, n int) error {
	stake, refund := s.Deposit.QuoRem(decimal.NewFromInt(int64(n)), 0)
	if stake.IsZero() && n > 1 {
		return s.say(ctx, fmt.Sprintf("❌ $%s is too small for %d rounds. %s", amount.Format(s.Deposit), n, s.roundsPrompt()))
	}
	s.Rounds = n
	s.Stake = stake
	s.Refund = refund

	if key := s.resolver.ParamKey(); key != "" {
		if err := s.advance(StateAwaitingParameters); err != nil {
			return err
		}
		return s.choose(ctx, fmt.Sprintf("Pick your %s:", key), s.resolver.Choices())
	}
	return s.openConfirmation(ctx)
}

func (s *Session) chooseParam(ctx context.Context, value string) error {
	key := s.resolver.ParamKey()
	params := game.Params{key: value}
	if err := s.resolver.ValidateParams(params); err != nil {
		return s.choose(ctx, fmt.Sprintf("❌ %v. Pick your %s:", err, key), s.resolver.Choices())
	}
	s.Params = params
	return s.openConfirmation(ctx)
}

func (s *Session) openConfirmation(ctx context.Context) error {
	if err := s.advance(StateAwaitingConfirmation); err != nil {
		return err
	}
	if err := s.world.RequestBalance(); err != nil {
		log.Warn().Err(err).Str("session_id", s.ID).Msg("Failed to request balance")
	}
	return s.choose(ctx, s.summary(), confirmChoices)
}

func (s *Session) summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 %s\n", s.resolver.Name())
	fmt.Fprintf(&b, "Deposit: $%s\n", amount.Format(s.Deposit))
	fmt.Fprintf(&b, "Bet per round: $%s\n", amount.Format(s.Stake))
	fmt.Fprintf(&b, "Rounds: %d\n", s.Rounds)
	if s.Refund.IsPositive() {
		fmt.Fprintf(&b, "Refund of overpayment: $%s\n", amount.Format(s.Refund))
	}
	if key := s.resolver.ParamKey(); key != "" {
		fmt.Fprintf(&b, "Your %s: %s\n", key, s.Params[key])
	}
	b.WriteString("Confirm to play or take a refund.")
	return b.String()
}

// MaxRisk is the most the house can pay out for the chosen terms.
func (s *Session) MaxRisk() decimal.Decimal {
	return s.Stake.
		Mul(s.resolver.MaxMultiplier(s.Params)).
		Mul(s.payoutRate).
		Mul(decimal.NewFromInt(int64(s.Rounds)))
}

func (s *Session) confirm(ctx context.Context) error {
	balance := s.world.Balance()
	if risk := s.MaxRisk(); balance.LessThan(risk) {
		log.Warn().
			Str("session_id", s.ID).
			Str("balance", balance.String()).
			Str("max_risk", risk.String()).
			Msg("House balance too low, refunding")
		s.refundDeposit()
		if err := s.advance(StateCancelled); err != nil {
			return err
		}
		return s.say(ctx, "🏦 The house cannot cover this bet right now. Your deposit has been refunded.")
	}

	if err := s.advance(StateInProgress); err != nil {
		return err
	}
	if refund := amount.Floor(s.Refund); refund > 0 {
		s.pay(refund)
	}

	if interactive, ok := s.resolver.(game.Interactive); ok {
		s.hand = interactive.Deal()
		if s.hand.Done() {
			return s.finishHand(ctx)
		}
		return s.choose(ctx, s.hand.View(), s.hand.Actions())
	}
	return s.playRounds(ctx)
}

func (s *Session) playRounds(ctx context.Context) error {
	for i := 1; i <= s.Rounds; i++ {
		if i > 1 {
			if err := s.pause(ctx); err != nil {
				return err
			}
		}
		out, err := s.resolver.Play(ctx, s.Params)
		if err != nil {
			return fmt.Errorf("round %d: %w", i, err)
		}
		if err := s.record(ctx, i, out); err != nil {
			return err
		}
	}
	return s.settle(ctx)
}

func (s *Session) pause(ctx context.Context) error {
	if s.roundDelay <= 0 {
		return nil
	}
	t := time.NewTimer(s.roundDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Session) record(ctx context.Context, index int, out *game.Outcome) error {
	switch {
	case out.Won:
		s.TotalPayout = s.TotalPayout.Add(s.Stake.Mul(out.Multiplier).Mul(s.payoutRate))
	case out.Push:
		// tie: the stake comes back without the house edge
		s.TotalPayout = s.TotalPayout.Add(s.Stake)
	}
	s.Results = append(s.Results, Round{Index: index, Outcome: *out})

	verdict := "LOSS"
	switch {
	case out.Won:
		verdict = "WIN"
	case out.Push:
		verdict = "PUSH"
	}
	return s.say(ctx, fmt.Sprintf("Round %d/%d: %s %s", index, s.Rounds, out.Description, verdict))
}

func (s *Session) act(ctx context.Context, action string) error {
	done, err := s.hand.Act(action)
	if err != nil || !done {
		return s.choose(ctx, s.hand.View(), s.hand.Actions())
	}
	return s.finishHand(ctx)
}

func (s *Session) finishHand(ctx context.Context) error {
	if err := s.say(ctx, s.hand.View()); err != nil {
		return err
	}
	if err := s.record(ctx, 1, s.hand.Outcome()); err != nil {
		return err
	}
	return s.settle(ctx)
}

func (s *Session) settle(ctx context.Context) error {
	payout := amount.Floor(s.TotalPayout)
	s.NetProfit = decimal.NewFromInt(payout).Sub(s.Deposit)

	if payout > 0 {
		s.pay(payout)
		s.broadcast(fmt.Sprintf("🎉 %s just won $%s on %s!", s.Identifier(), amount.Format(decimal.NewFromInt(payout)), s.resolver.Name()))
	} else {
		s.broadcast(fmt.Sprintf("%s lost $%s on %s. Better luck next time!", s.Identifier(), amount.Format(s.Deposit), s.resolver.Name()))
	}

	log.Info().
		Str("session_id", s.ID).
		Str("identifier", s.Identifier()).
		Int64("payout", payout).
		Str("net_profit", s.NetProfit.String()).
		Msg("Session settled")

	if err := s.advance(StateAwaitingFeedback); err != nil {
		return err
	}

	result := fmt.Sprintf("🏁 Paid out $%s. Net: $%s.", amount.Format(decimal.NewFromInt(payout)), amount.Format(s.NetProfit))
	return s.choose(ctx, result+"\nShare your result?", feedbackChoices)
}

func (s *Session) feedback(ctx context.Context, option string) error {
	switch option {
	case OptionPost, OptionAnon:
		t := &model.Testimonial{
			SessionID: s.ID,
			Variant:   string(s.Variant),
			Deposit:   s.Deposit,
			NetProfit: s.NetProfit,
			CreatedAt: time.Now(),
		}
		if option == OptionPost {
			t.DisplayName = s.OwnerName
		}
		if s.reporter != nil {
			if err := s.reporter.PostTestimonial(ctx, t); err != nil {
				log.Error().Err(err).Str("session_id", s.ID).Msg("Failed to post testimonial")
			}
		}
	case OptionSkip:
	default:
		return nil
	}

	if err := s.advance(StateClosed); err != nil {
		return err
	}
	return s.say(ctx, "👋 Thanks for playing! This space closes shortly.")
}

// refundDeposit pays back the floored deposit.
func (s *Session) refundDeposit() {
	if value := amount.Floor(s.Deposit); value > 0 {
		s.pay(value)
	}
}

func (s *Session) pay(value int64) {
	if err := s.world.Pay(s.Identifier(), value); err != nil {
		log.Error().
			Err(err).
			Str("session_id", s.ID).
			Str("identifier", s.Identifier()).
			Int64("amount", value).
			Msg("Failed to send pay command")
		return
	}
	log.Info().
		Str("session_id", s.ID).
		Str("identifier", s.Identifier()).
		Int64("amount", value).
		Msg("Pay command sent")
}

func (s *Session) broadcast(text string) {
	if err := s.world.Broadcast(text); err != nil {
		log.Warn().Err(err).Str("session_id", s.ID).Msg("Failed to broadcast result")
	}
}

func (s *Session) say(ctx context.Context, text string) error {
	return s.notifier.PromptText(ctx, s.SpaceID, text)
}

func (s *Session) choose(ctx context.Context, text string, options []game.Choice) error {
	return s.notifier.PromptChoice(ctx, s.SpaceID, text, options)
}
