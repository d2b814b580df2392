package payment

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CandidateSource lists the sessions currently waiting for a deposit.
type CandidateSource interface {
	AwaitingDeposit() []Candidate
}

// Sink receives matched payments.
type Sink interface {
	DeliverPayment(sessionID string, value decimal.Decimal, line string) bool
}

// BalanceSink receives the bot's own balance when a line reports it.
type BalanceSink interface {
	SetBalance(value decimal.Decimal)
}

// Router is the single consumer of world-chat lines. Lines must be fed in
// arrival order from one goroutine.
type Router struct {
	matcher  *Matcher
	sessions CandidateSource
	sink     Sink
	balance  BalanceSink
}

// NewRouter creates a Router.
func NewRouter(matcher *Matcher, sessions CandidateSource, sink Sink, balance BalanceSink) *Router {
	return &Router{
		matcher:  matcher,
		sessions: sessions,
		sink:     sink,
		balance:  balance,
	}
}

// HandleLine processes one raw world-chat line.
func (r *Router) HandleLine(raw string) {
	line := Clean(raw)
	if line == "" {
		return
	}
	log.Debug().Str("line", line).Msg("World chat")

	if value, ok := r.matcher.Balance(line); ok && r.balance != nil {
		r.balance.SetBalance(value)
		log.Debug().Str("balance", value.String()).Msg("Balance updated")
	}

	candidates := r.sessions.AwaitingDeposit()
	if len(candidates) == 0 {
		return
	}

	match, ok := r.matcher.Match(line, candidates)
	if !ok {
		return
	}

	if !r.sink.DeliverPayment(match.SessionID, match.Amount, line) {
		log.Warn().
			Str("session_id", match.SessionID).
			Msg("Matched payment for a session that is gone")
		return
	}
	log.Info().
		Str("session_id", match.SessionID).
		Str("amount", match.Amount.String()).
		Msg("Payment observed")
}
