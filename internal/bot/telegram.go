package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"wager-bridge-bot/internal/config"
	"wager-bridge-bot/internal/game"
	"wager-bridge-bot/internal/model"
	"wager-bridge-bot/internal/session"
)

// Telegram inline buttons per row.
const telegramRowSize = 3

// Telegram is the Telegram gateway. The discussion space of a session is the
// player's private chat with the bot, so players must have started the bot.
type Telegram struct {
	bot      *tele.Bot
	cfg      *config.Config
	commands *Commands
	sessions Dispatcher

	// ctx is the process context handed to commands
	ctx context.Context
}

// NewTelegram creates the Telegram gateway. Call Bind before Start.
func NewTelegram(cfg *config.Config) (*Telegram, error) {
	if cfg.Telegram.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	t := &Telegram{bot: b, cfg: cfg, ctx: context.Background()}
	b.Use(RecoveryMiddleware())
	b.Use(LoggingMiddleware())
	b.Handle(tele.OnText, t.handleText)
	b.Handle(tele.OnCallback, t.handleCallback)
	return t, nil
}

// Bind sets where lobby commands and discussion-space input go. Commands
// run under ctx, so a world link started from chat stops with the process.
func (t *Telegram) Bind(ctx context.Context, commands *Commands, sessions Dispatcher) {
	t.ctx = ctx
	t.commands = commands
	t.sessions = sessions
}

// Start polls for updates. It blocks until Stop.
func (t *Telegram) Start() {
	log.Info().Msg("Starting Telegram bot...")
	t.bot.Start()
}

// Stop stops polling.
func (t *Telegram) Stop() {
	log.Info().Msg("Stopping Telegram bot...")
	t.bot.Stop()
}

func (t *Telegram) handleText(c tele.Context) error {
	sender, chat := c.Sender(), c.Chat()
	if sender == nil || chat == nil {
		return nil
	}
	userID := strconv.FormatInt(sender.ID, 10)
	space := strconv.FormatInt(chat.ID, 10)

	if chat.Type == tele.ChatPrivate && t.sessions != nil &&
		t.sessions.Dispatch(space, session.OwnerReplied{ActorID: userID, Text: c.Text()}) {
		return nil
	}

	reply, ok := t.commands.Handle(t.ctx, Request{
		UserID:    userID,
		UserName:  displayName(sender),
		ChannelID: space,
		Text:      t.normalizeCommand(c.Text()),
		Owner:     t.cfg.IsTelegramOwner(sender.ID),
	})
	if !ok {
		return nil
	}
	return c.Reply(reply)
}

// normalizeCommand turns "/coinflip@SomeBot" into "!coinflip".
func (t *Telegram) normalizeCommand(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	cmd, rest, _ := strings.Cut(text[1:], " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.TrimSpace(t.cfg.Channel.CommandPrefix + cmd + " " + rest)
}

func (t *Telegram) handleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil || c.Sender() == nil || c.Chat() == nil {
		return nil
	}
	_ = c.Respond()

	option, ok := DecodeChoice(cb.Data)
	if !ok || t.sessions == nil {
		return nil
	}
	t.sessions.Dispatch(strconv.FormatInt(c.Chat().ID, 10), session.ChoiceSelected{
		ActorID:  strconv.FormatInt(c.Sender().ID, 10),
		OptionID: option,
	})
	return nil
}

func displayName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func chatID(spaceID string) (tele.ChatID, error) {
	id, err := strconv.ParseInt(spaceID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", spaceID, err)
	}
	return tele.ChatID(id), nil
}

// PromptText implements session.Notifier.
func (t *Telegram) PromptText(_ context.Context, spaceID, text string) error {
	id, err := chatID(spaceID)
	if err != nil {
		return err
	}
	if _, err := t.bot.Send(id, text); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// PromptChoice implements session.Notifier.
func (t *Telegram) PromptChoice(_ context.Context, spaceID, text string, options []game.Choice) error {
	id, err := chatID(spaceID)
	if err != nil {
		return err
	}
	if _, err := t.bot.Send(id, text, inlineKeyboard(options)); err != nil {
		return fmt.Errorf("send prompt: %w", err)
	}
	return nil
}

func inlineKeyboard(options []game.Choice) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	for _, row := range chunk(options, telegramRowSize) {
		buttons := make([]tele.InlineButton, 0, len(row))
		for _, o := range row {
			buttons = append(buttons, tele.InlineButton{Text: o.Label, Data: EncodeChoice(o.ID)})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}
	return markup
}

// OpenSpace implements session.Spaces. The private chat id equals the user id.
func (t *Telegram) OpenSpace(_ context.Context, entry model.QueueEntry) (string, error) {
	id, err := chatID(entry.RequesterID)
	if err != nil {
		return "", err
	}
	if _, err := t.bot.Send(id, "🎲 Your game is ready!"); err != nil {
		return "", fmt.Errorf("open private chat: %w", err)
	}
	return entry.RequesterID, nil
}

// CloseSpace implements session.Spaces. Private chats cannot be deleted, so
// the session just signs off.
func (t *Telegram) CloseSpace(_ context.Context, spaceID string) error {
	return t.PromptText(context.Background(), spaceID, "Session closed. Send a game command to play again.")
}

// PostTestimonial implements session.Reporter in the configured report chat.
func (t *Telegram) PostTestimonial(_ context.Context, tm *model.Testimonial) error {
	if t.cfg.Report.ChannelID == "" {
		return nil
	}
	return t.PromptText(context.Background(), t.cfg.Report.ChannelID, "🎲 "+TestimonialText(tm))
}
