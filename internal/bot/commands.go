// Package bot connects the interactive chat channels (Discord, Telegram) to
// the session queue and the world link.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"wager-bridge-bot/internal/amount"
	"wager-bridge-bot/internal/game"
	"wager-bridge-bot/internal/model"
	"wager-bridge-bot/internal/session"
	"wager-bridge-bot/internal/worldlink"
)

// Operator commands.
const (
	CommandStartBot = "startbot"
	CommandStopBot  = "stopbot"
	CommandStatus   = "status"
	CommandGames    = "games"
)

// Admission accepts queue entries.
type Admission interface {
	Enqueue(entry model.QueueEntry) (int, error)
}

// Dispatcher routes discussion-space input to its session.
type Dispatcher interface {
	Dispatch(spaceID string, ev session.Event) bool
}

// Request is a lobby message that may be a command.
type Request struct {
	UserID    string
	UserName  string
	ChannelID string
	Text      string
	Owner     bool
}

// Commands parses lobby commands. It is shared by every gateway.
type Commands struct {
	prefix   string
	registry *game.Registry
	queue    Admission
	world    WorldControl
}

// WorldControl is the supervisor surface the commands need.
type WorldControl interface {
	Start(ctx context.Context)
	Stop()
	Connected() bool
	Status() worldlink.Status
}

// NewCommands creates Commands. prefix is usually "!".
func NewCommands(prefix string, registry *game.Registry, queue Admission, world WorldControl) *Commands {
	return &Commands{prefix: prefix, registry: registry, queue: queue, world: world}
}

// Handle answers a lobby message. ok is false when the text is not a command.
func (c *Commands) Handle(ctx context.Context, req Request) (reply string, ok bool) {
	text := strings.TrimSpace(req.Text)
	if !strings.HasPrefix(text, c.prefix) {
		return "", false
	}
	name := strings.ToLower(strings.Fields(strings.TrimPrefix(text, c.prefix) + " ")[0])

	switch name {
	case CommandStartBot, CommandStopBot:
		if !req.Owner {
			log.Warn().
				Str("user_id", req.UserID).
				Str("command", name).
				Msg("Non-owner attempted operator command")
			return "❌ Only the bot owner can do that.", true
		}
		if name == CommandStartBot {
			c.world.Start(ctx)
			return "🟢 Connecting to the world...", true
		}
		c.world.Stop()
		return "🔴 World link stopped. Auto-reconnect is off until startbot.", true
	case CommandStatus:
		return fmt.Sprintf("World link: %s", c.world.Status()), true
	case CommandGames:
		return c.gamesHelp(), true
	}

	resolver, found := c.registry.Get(game.Variant(name))
	if !found {
		return "", false
	}
	return c.admit(req, resolver), true
}

func (c *Commands) admit(req Request, resolver game.Resolver) string {
	if !c.world.Connected() {
		return "⚠️ The bot is offline right now. Try again in a minute."
	}

	position, err := c.queue.Enqueue(model.QueueEntry{
		RequesterID:     req.UserID,
		RequesterName:   req.UserName,
		OriginChannelID: req.ChannelID,
		Variant:         string(resolver.Variant()),
	})
	switch {
	case errors.Is(err, session.ErrAlreadyQueued):
		return "⏳ You already have a game queued or running."
	case err != nil:
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to enqueue")
		return "❌ Could not join the queue. Try again later."
	case position == 0:
		return fmt.Sprintf("🎲 %s is starting, check your private space!", resolver.Name())
	default:
		return fmt.Sprintf("⏳ You're #%d in the queue for %s.", position, resolver.Name())
	}
}

func (c *Commands) gamesHelp() string {
	var b strings.Builder
	b.WriteString("🎰 Games:\n")
	for _, v := range c.registry.Variants() {
		r, _ := c.registry.Get(v)
		fmt.Fprintf(&b, "%s%s: %s\n", c.prefix, v, r.Description())
	}
	return strings.TrimRight(b.String(), "\n")
}

// PresenceText is the status line shown while the bot idles.
func PresenceText(prefix string, status session.Status) string {
	players := status.Waiting + status.Active
	noun := "players"
	if players == 1 {
		noun = "player"
	}
	return fmt.Sprintf("%d %s in queue | %scoinflip", players, noun, prefix)
}

// TestimonialText renders a testimonial for a public channel.
func TestimonialText(t *model.Testimonial) string {
	player := t.DisplayName
	if t.Anonymous() {
		player = "An anonymous player"
	}
	switch {
	case t.Won():
		return fmt.Sprintf("%s won $%s playing %s (deposit $%s).",
			player, amount.Format(t.NetProfit), t.Variant, amount.Format(t.Deposit))
	case t.NetProfit.IsZero():
		return fmt.Sprintf("%s broke even playing %s (deposit $%s).",
			player, t.Variant, amount.Format(t.Deposit))
	default:
		return fmt.Sprintf("%s lost $%s playing %s (deposit $%s).",
			player, amount.Format(t.NetProfit.Neg()), t.Variant, amount.Format(t.Deposit))
	}
}
