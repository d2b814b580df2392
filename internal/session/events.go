package session

import "github.com/shopspring/decimal"

// Event is an input consumed by a session's transition logic.
type Event interface {
	isEvent()
}

// OwnerReplied is a text message posted in the session's discussion space.
type OwnerReplied struct {
	ActorID string
	Text    string
}

// ChoiceSelected is a button press or menu choice in the discussion space.
type ChoiceSelected struct {
	ActorID  string
	OptionID string
}

// PaymentObserved is a world-chat line the payment matcher attributed to the
// session's identifier.
type PaymentObserved struct {
	Amount decimal.Decimal
	Line   string
}

func (OwnerReplied) isEvent()    {}
func (ChoiceSelected) isEvent()  {}
func (PaymentObserved) isEvent() {}
