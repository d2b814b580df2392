package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"wager-bridge-bot/internal/game"
	"wager-bridge-bot/internal/model"
)

// journal records side effects from every fake in order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type prompt struct {
	spaceID string
	text    string
	options []game.Choice
}

type fakeNotifier struct {
	mu      sync.Mutex
	prompts []prompt
}

func (n *fakeNotifier) PromptText(_ context.Context, spaceID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prompts = append(n.prompts, prompt{spaceID: spaceID, text: text})
	return nil
}

func (n *fakeNotifier) PromptChoice(_ context.Context, spaceID, text string, options []game.Choice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prompts = append(n.prompts, prompt{spaceID: spaceID, text: text, options: options})
	return nil
}

func (n *fakeNotifier) last() prompt {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.prompts) == 0 {
		return prompt{}
	}
	return n.prompts[len(n.prompts)-1]
}

func (n *fakeNotifier) count(spaceID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, p := range n.prompts {
		if p.spaceID == spaceID {
			c++
		}
	}
	return c
}

type payCmd struct {
	target string
	amount int64
}

type fakeWorld struct {
	mu         sync.Mutex
	log        *journal
	balance    decimal.Decimal
	pays       []payCmd
	broadcasts []string
	polls      int
}

func newFakeWorld(balance int64, log *journal) *fakeWorld {
	if log == nil {
		log = &journal{}
	}
	return &fakeWorld{balance: decimal.NewFromInt(balance), log: log}
}

func (w *fakeWorld) Pay(target string, amount int64) error {
	w.mu.Lock()
	w.pays = append(w.pays, payCmd{target: target, amount: amount})
	w.mu.Unlock()
	w.log.add("pay %s %d", target, amount)
	return nil
}

func (w *fakeWorld) Broadcast(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.broadcasts = append(w.broadcasts, text)
	return nil
}

func (w *fakeWorld) RequestBalance() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.polls++
	return nil
}

func (w *fakeWorld) Balance() decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance
}

func (w *fakeWorld) payments() []payCmd {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]payCmd(nil), w.pays...)
}

type fakeReporter struct {
	posted []*model.Testimonial
}

func (r *fakeReporter) PostTestimonial(_ context.Context, t *model.Testimonial) error {
	r.posted = append(r.posted, t)
	return nil
}

// scripted is a resolver whose rounds follow a fixed win/loss script.
type scripted struct {
	maxRounds int
	wins      []bool
	played    int
	log       *journal
}

func (r *scripted) Variant() game.Variant                     { return game.VariantCoinFlip }
func (r *scripted) Name() string                              { return "Scripted" }
func (r *scripted) Description() string                       { return "test resolver" }
func (r *scripted) MaxRounds() int                            { return r.maxRounds }
func (r *scripted) ParamKey() string                          { return "" }
func (r *scripted) Choices() []game.Choice                    { return nil }
func (r *scripted) ValidateParams(game.Params) error          { return nil }
func (r *scripted) MaxMultiplier(game.Params) decimal.Decimal { return decimal.NewFromInt(2) }

func (r *scripted) Play(context.Context, game.Params) (*game.Outcome, error) {
	won := false
	if r.played < len(r.wins) {
		won = r.wins[r.played]
	}
	r.played++
	if r.log != nil {
		r.log.add("round %d", r.played)
	}
	return &game.Outcome{Won: won, Multiplier: decimal.NewFromInt(2), Description: "scripted"}, nil
}

// fixedFloat always draws the same float.
type fixedFloat float64

func (f fixedFloat) IntN(int) int     { return 0 }
func (f fixedFloat) Float64() float64 { return float64(f) }

// deck deals the given ranks in order.
type deck struct {
	cards []int
	i     int
}

func (d *deck) IntN(int) int {
	c := d.cards[d.i%len(d.cards)]
	d.i++
	return c - 1
}

func (d *deck) Float64() float64 { return 0 }

type flakySpaces struct {
	mu       sync.Mutex
	failures map[string]int // requester id -> remaining failures
	opened   []string
	closed   []string
}

func (s *flakySpaces) OpenSpace(_ context.Context, entry model.QueueEntry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures[entry.RequesterID] > 0 {
		s.failures[entry.RequesterID]--
		return "", errors.New("thread creation failed")
	}
	id := "space-" + entry.RequesterID
	s.opened = append(s.opened, id)
	return id, nil
}

func (s *flakySpaces) CloseSpace(_ context.Context, spaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, spaceID)
	return nil
}

func (s *flakySpaces) closedSpaces() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.closed...)
}
