// Package payment recognises in-world payment notifications in raw chat text.
//
// Chat scraping is a heuristic, not a verified payment: anyone able to put a
// line containing a player's name, a marker phrase and a dollar amount into
// the bot's chat can trigger a match. Keep this package the only place that
// decides what counts as a payment so it can be replaced by a real ledger.
package payment

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"wager-bridge-bot/internal/amount"
)

// DefaultMarkers are the phrases that classify a line as a payment.
var DefaultMarkers = []string{"paid you", "received"}

var (
	formatCodes = regexp.MustCompile(`(?i)\x{00A7}[0-9A-FK-OR]`)
	moneyToken  = regexp.MustCompile(`\$([0-9.,]+[KMBkmb]?)`)
)

// Candidate is a session waiting for a deposit from Identifier.
type Candidate struct {
	SessionID  string
	Identifier string
}

// Match is a line routed to a session.
type Match struct {
	SessionID string
	Amount    decimal.Decimal
}

// Matcher classifies chat lines. It holds no state besides its configuration.
type Matcher struct {
	markers      []string
	balanceWords []string
}

// NewMatcher creates a Matcher. Empty markers fall back to DefaultMarkers.
func NewMatcher(markers []string) *Matcher {
	m := &Matcher{balanceWords: []string{"balance"}}
	for _, marker := range markers {
		if marker = strings.ToLower(strings.TrimSpace(marker)); marker != "" {
			m.markers = append(m.markers, marker)
		}
	}
	if len(m.markers) == 0 {
		m.markers = DefaultMarkers
	}
	return m
}

// Clean strips chat formatting codes and surrounding whitespace.
func Clean(raw string) string {
	return strings.TrimSpace(formatCodes.ReplaceAllString(raw, ""))
}

// ExtractAmount returns the first $-prefixed amount in line.
// ok is false when there is no token or it is not a positive number.
func ExtractAmount(line string) (decimal.Decimal, bool) {
	m := moneyToken.FindStringSubmatch(line)
	if m == nil {
		return decimal.Zero, false
	}
	value, err := amount.Parse(m[1])
	if err != nil || !value.IsPositive() {
		return decimal.Zero, false
	}
	return value, true
}

// IsPaymentFrom reports whether line reads as a payment notification that
// mentions identifier.
func (m *Matcher) IsPaymentFrom(line, identifier string) bool {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return false
	}
	lower := strings.ToLower(line)
	if !strings.Contains(lower, identifier) {
		return false
	}
	for _, marker := range m.markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Match finds the session a payment line belongs to. At most one session
// matches; longer identifiers are tried first so "steve123" is not claimed
// by a session waiting on "steve".
func (m *Matcher) Match(line string, candidates []Candidate) (Match, bool) {
	value, ok := ExtractAmount(line)
	if !ok {
		return Match{}, false
	}

	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Identifier) > len(ordered[j].Identifier)
	})

	for _, c := range ordered {
		if m.IsPaymentFrom(line, c.Identifier) {
			return Match{SessionID: c.SessionID, Amount: value}, true
		}
	}
	return Match{}, false
}

// Balance extracts the bot's own balance from a balance report line.
func (m *Matcher) Balance(line string) (decimal.Decimal, bool) {
	lower := strings.ToLower(line)
	for _, marker := range m.markers {
		if strings.Contains(lower, marker) {
			return decimal.Zero, false
		}
	}
	for _, word := range m.balanceWords {
		if strings.Contains(lower, word) {
			mt := moneyToken.FindStringSubmatch(line)
			if mt == nil {
				return decimal.Zero, false
			}
			value, err := amount.Parse(mt[1])
			if err != nil {
				return decimal.Zero, false
			}
			return value, true
		}
	}
	return decimal.Zero, false
}
