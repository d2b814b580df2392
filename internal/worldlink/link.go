// Package worldlink maintains the connection to the game world: it dials the
// relay, keeps the avatar alive, reconnects after drops and sends the chat
// commands used for payments and announcements.
package worldlink

import "context"

// EventKind classifies a link event.
type EventKind int

const (
	// EventSpawned means the avatar is in the world and commands will work.
	EventSpawned EventKind = iota
	// EventLine carries one raw chat line.
	EventLine
	// EventEnded means the link is gone. No events follow it.
	EventEnded
)

// Event is something that happened on a Link.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// Link is one live connection to the game world.
type Link interface {
	// Events delivers events in arrival order. It is closed after EventEnded.
	Events() <-chan Event
	Send(text string) error
	// KeepAlive performs the idle action that stops the server kicking the avatar.
	KeepAlive() error
	Close() error
}

// Dialer opens Links.
type Dialer interface {
	Dial(ctx context.Context) (Link, error)
}
