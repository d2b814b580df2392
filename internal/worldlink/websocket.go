package worldlink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Relay frame types.
const (
	FrameSpawn     = "spawn"
	FrameChat      = "chat"
	FrameEnd       = "end"
	FrameKeepAlive = "keepalive"
)

// Frame is the JSON message exchanged with the world relay.
type Frame struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

const (
	eventBuffer  = 64
	writeTimeout = 10 * time.Second
)

// WSDialer connects to a world relay over a websocket. The relay owns the
// game client; the bot only exchanges Frames with it.
type WSDialer struct {
	URL    string
	Header http.Header
}

// Dial implements Dialer.
func (d *WSDialer) Dial(ctx context.Context) (Link, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, d.URL, d.Header)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	l := &wsLink{
		conn:   conn,
		events: make(chan Event, eventBuffer),
	}
	go l.readLoop()
	return l, nil
}

type wsLink struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	events    chan Event
	closeOnce sync.Once
}

func (l *wsLink) Events() <-chan Event { return l.events }

func (l *wsLink) readLoop() {
	defer close(l.events)
	for {
		var f Frame
		if err := l.conn.ReadJSON(&f); err != nil {
			l.events <- Event{Kind: EventEnded, Err: err}
			return
		}

		switch f.Type {
		case FrameSpawn:
			l.events <- Event{Kind: EventSpawned}
		case FrameChat:
			l.events <- Event{Kind: EventLine, Text: f.Text}
		case FrameEnd:
			l.events <- Event{Kind: EventEnded, Err: errors.New(f.Text)}
			_ = l.conn.Close()
			return
		default:
			log.Debug().Str("type", f.Type).Msg("Ignoring unknown relay frame")
		}
	}
}

func (l *wsLink) write(f Frame) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_ = l.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return l.conn.WriteJSON(f)
}

func (l *wsLink) Send(text string) error {
	return l.write(Frame{Type: FrameChat, Text: text})
}

func (l *wsLink) KeepAlive() error {
	return l.write(Frame{Type: FrameKeepAlive})
}

func (l *wsLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.writeMu.Lock()
		_ = l.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second),
		)
		l.writeMu.Unlock()
		err = l.conn.Close()
	})
	return err
}
