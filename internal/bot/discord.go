package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"wager-bridge-bot/internal/amount"
	"wager-bridge-bot/internal/config"
	"wager-bridge-bot/internal/game"
	"wager-bridge-bot/internal/model"
	"wager-bridge-bot/internal/session"
)

// Discord buttons per action row.
const discordRowSize = 5

// Discord is the Discord gateway. Each session gets a private thread under
// the channel the player asked in.
type Discord struct {
	session  *discordgo.Session
	cfg      *config.Config
	commands *Commands
	sessions Dispatcher

	// ctx is the process context handed to commands
	ctx context.Context
}

// NewDiscord creates the Discord gateway. Call Bind before Open.
func NewDiscord(cfg *config.Config) (*Discord, error) {
	if cfg.Discord.Token == "" {
		return nil, fmt.Errorf("discord token is required")
	}

	s, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	d := &Discord{session: s, cfg: cfg, ctx: context.Background()}
	s.AddHandler(d.onReady)
	s.AddHandler(d.onMessageCreate)
	s.AddHandler(d.onInteractionCreate)
	return d, nil
}

// Bind sets where lobby commands and discussion-space input go. Commands
// run under ctx, so a world link started from chat stops with the process.
func (d *Discord) Bind(ctx context.Context, commands *Commands, sessions Dispatcher) {
	d.ctx = ctx
	d.commands = commands
	d.sessions = sessions
}

// Open connects to the gateway.
func (d *Discord) Open() error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	return nil
}

// Close disconnects.
func (d *Discord) Close() error {
	return d.session.Close()
}

func (d *Discord) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	log.Info().Str("user", r.User.Username).Msg("Discord connected")
	d.UpdatePresence(session.Status{})
}

func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	if d.sessions != nil && d.sessions.Dispatch(m.ChannelID, session.OwnerReplied{
		ActorID: m.Author.ID,
		Text:    m.Content,
	}) {
		return
	}

	reply, ok := d.commands.Handle(d.ctx, Request{
		UserID:    m.Author.ID,
		UserName:  m.Author.Username,
		ChannelID: m.ChannelID,
		Text:      m.Content,
		Owner:     d.cfg.IsOwner(m.Author.ID),
	})
	if !ok {
		return
	}
	if _, err := s.ChannelMessageSendReply(m.ChannelID, reply, m.Reference()); err != nil {
		log.Error().Err(err).Str("channel_id", m.ChannelID).Msg("Failed to reply")
	}
}

func (d *Discord) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	option, ok := DecodeChoice(i.MessageComponentData().CustomID)
	if !ok {
		return
	}

	user := i.User
	if i.Member != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}); err != nil {
		log.Warn().Err(err).Msg("Failed to acknowledge interaction")
	}

	if d.sessions == nil || !d.sessions.Dispatch(i.ChannelID, session.ChoiceSelected{
		ActorID:  user.ID,
		OptionID: option,
	}) {
		log.Debug().Str("channel_id", i.ChannelID).Msg("Button press outside a session")
	}
}

// PromptText implements session.Notifier.
func (d *Discord) PromptText(_ context.Context, spaceID, text string) error {
	if _, err := d.session.ChannelMessageSend(spaceID, text); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// PromptChoice implements session.Notifier.
func (d *Discord) PromptChoice(_ context.Context, spaceID, text string, options []game.Choice) error {
	var rows []discordgo.MessageComponent
	for _, row := range chunk(options, discordRowSize) {
		buttons := make([]discordgo.MessageComponent, 0, len(row))
		for _, o := range row {
			buttons = append(buttons, discordgo.Button{
				Label:    o.Label,
				Style:    buttonStyle(o.ID),
				CustomID: EncodeChoice(o.ID),
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}

	_, err := d.session.ChannelMessageSendComplex(spaceID, &discordgo.MessageSend{
		Content:    text,
		Components: rows,
	})
	if err != nil {
		return fmt.Errorf("send prompt: %w", err)
	}
	return nil
}

func buttonStyle(optionID string) discordgo.ButtonStyle {
	switch optionID {
	case session.OptionConfirm:
		return discordgo.SuccessButton
	case session.OptionRefund:
		return discordgo.DangerButton
	case session.OptionSkip:
		return discordgo.SecondaryButton
	default:
		return discordgo.PrimaryButton
	}
}

// OpenSpace implements session.Spaces with a private thread.
func (d *Discord) OpenSpace(_ context.Context, entry model.QueueEntry) (string, error) {
	name := fmt.Sprintf("%s-%s", entry.Variant, strings.ToLower(entry.RequesterName))
	thread, err := d.session.ThreadStartComplex(entry.OriginChannelID, &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: 60,
		Type:                discordgo.ChannelTypeGuildPrivateThread,
		Invitable:           false,
	})
	if err != nil {
		return "", fmt.Errorf("start thread: %w", err)
	}

	if err := d.session.ThreadMemberAdd(thread.ID, entry.RequesterID); err != nil {
		_, _ = d.session.ChannelDelete(thread.ID)
		return "", fmt.Errorf("add thread member: %w", err)
	}
	return thread.ID, nil
}

// CloseSpace implements session.Spaces.
func (d *Discord) CloseSpace(_ context.Context, spaceID string) error {
	if _, err := d.session.ChannelDelete(spaceID); err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	return nil
}

// PostTestimonial implements session.Reporter with an embed in the
// configured report channel.
func (d *Discord) PostTestimonial(_ context.Context, t *model.Testimonial) error {
	channel := d.cfg.Report.ChannelID
	if channel == "" {
		return nil
	}

	color := 0xE74C3C
	if t.Won() {
		color = 0x2ECC71
	}
	_, err := d.session.ChannelMessageSendEmbed(channel, &discordgo.MessageEmbed{
		Title:       "🎲 Game result",
		Description: TestimonialText(t),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Deposit", Value: "$" + amount.Format(t.Deposit), Inline: true},
			{Name: "Net", Value: "$" + amount.Format(t.NetProfit), Inline: true},
		},
	})
	if err != nil {
		return fmt.Errorf("post testimonial: %w", err)
	}
	return nil
}

// UpdatePresence shows the queue size as the bot's activity.
func (d *Discord) UpdatePresence(status session.Status) {
	if err := d.session.UpdateGameStatus(0, PresenceText(d.cfg.Channel.CommandPrefix, status)); err != nil {
		log.Debug().Err(err).Msg("Failed to update presence")
	}
}
