// Package main is the entry point for the wager bridge bot.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"wager-bridge-bot/internal/bot"
	"wager-bridge-bot/internal/config"
	"wager-bridge-bot/internal/game"
	"wager-bridge-bot/internal/game/coinflip"
	"wager-bridge-bot/internal/game/dice"
	"wager-bridge-bot/internal/game/duel"
	"wager-bridge-bot/internal/game/wheel"
	"wager-bridge-bot/internal/health"
	"wager-bridge-bot/internal/payment"
	"wager-bridge-bot/internal/pkg/db"
	"wager-bridge-bot/internal/repository"
	"wager-bridge-bot/internal/session"
	"wager-bridge-bot/internal/worldlink"
)

// gateway is an interactive channel able to host sessions.
type gateway interface {
	session.Notifier
	session.Spaces
	session.Reporter
	Bind(ctx context.Context, commands *bot.Commands, sessions bot.Dispatcher)
}

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Str("transport", cfg.Channel.Transport).Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry, err := newRegistry(&cfg.Games)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register games")
	}

	log.Info().
		Int("game_count", registry.Count()).
		Msg("Games registered")

	// World link
	header := http.Header{}
	if cfg.World.BotName != "" {
		header.Set("X-Bot-Name", cfg.World.BotName)
	}
	supervisor := worldlink.NewSupervisor(worldlink.Config{
		PayCommand:        cfg.World.PayCommand,
		BalanceCommand:    cfg.World.BalanceCommand,
		IdleInterval:      cfg.World.IdleInterval,
		BalancePollDelay:  cfg.World.BalancePollDelay,
		ReconnectDelay:    cfg.World.ReconnectDelay,
		ReconnectMaxDelay: cfg.World.ReconnectMaxDelay,
		BroadcastEnabled:  cfg.World.Broadcast.Enabled,
		BroadcastInterval: cfg.World.Broadcast.Interval,
		BroadcastMessage:  cfg.World.Broadcast.Message,
	}, &worldlink.WSDialer{URL: cfg.World.RelayURL, Header: header})

	// Optional testimonial archive
	var (
		archive health.Archive
		store   *repository.TestimonialRepository
	)
	if cfg.Database.Enabled {
		dbPool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer dbPool.Close()

		store = repository.NewTestimonialRepository(dbPool.Pool)
		if err := store.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
		archive = store
	}

	// Interactive channel
	var (
		gw     gateway
		run    func()
		stop   func()
		onIdle func(session.Status)
	)
	switch cfg.Channel.Transport {
	case config.TransportTelegram:
		tg, err := bot.NewTelegram(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Telegram bot")
		}
		gw, run, stop = tg, tg.Start, tg.Stop
	default:
		dc, err := bot.NewDiscord(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Discord bot")
		}
		run = func() {
			if err := dc.Open(); err != nil {
				log.Fatal().Err(err).Msg("Failed to open Discord session")
			}
		}
		stop = func() { _ = dc.Close() }
		gw, onIdle = dc, dc.UpdatePresence
	}

	var reporter session.Reporter = gw
	if store != nil {
		reporter = bot.Reporters{gw, bot.Archive{Store: store}}
	}

	matcher := payment.NewMatcher(cfg.Session.MarkerPhrases)
	queue := session.NewQueue(session.QueueConfig{
		PoolSize:           cfg.Session.PoolSize,
		HouseEdge:          decimal.NewFromFloat(cfg.Session.HouseEdge),
		RoundDelay:         cfg.Session.RoundDelay,
		CleanupDelay:       cfg.Session.CleanupDelay,
		SpaceRetries:       3,
		SpaceRetryInterval: time.Second,
	}, session.Deps{
		Registry: registry,
		Notifier: gw,
		Spaces:   gw,
		World:    supervisor,
		Reporter: reporter,
		Matcher:  matcher,
	})
	if onIdle != nil {
		queue.OnChange(onIdle)
	}
	gw.Bind(ctx, bot.NewCommands(cfg.Channel.CommandPrefix, registry, queue, supervisor), queue)

	// World lines feed balances and deposits, in arrival order
	router := payment.NewRouter(matcher, queue, queue, supervisor)
	supervisor.OnLine(router.HandleLine)

	queue.Start(ctx)
	if cfg.World.AutoStart {
		supervisor.Start(ctx)
	}

	// Keep-alive HTTP
	server := health.NewServer(cfg.HTTP.Addr, supervisor, queue, archive)
	server.Start()

	var pinger gocron.Scheduler
	if cfg.HTTP.SelfPingURL != "" {
		pinger, err = health.StartSelfPing(cfg.HTTP.SelfPingURL, cfg.HTTP.SelfPingInterval, nil)
		if err != nil {
			log.Error().Err(err).Msg("Failed to start self-ping")
		}
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		run()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	cancel()

	stop()
	supervisor.Stop()
	queue.Stop()
	if pinger != nil {
		_ = pinger.Shutdown()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("Bot stopped gracefully")
}

// newRegistry registers every enabled variant.
func newRegistry(cfg *config.GamesConfig) (*game.Registry, error) {
	registry := game.NewRegistry()
	resolvers := []struct {
		enabled  bool
		resolver game.Resolver
	}{
		{cfg.CoinFlip.Enabled, coinflip.New(&coinflip.Config{MaxRounds: cfg.CoinFlip.MaxRounds})},
		{cfg.DiceOver.Enabled, dice.NewOverUnder(&dice.Config{MaxRounds: cfg.DiceOver.MaxRounds})},
		{cfg.DiceExact.Enabled, dice.NewExact(&dice.Config{MaxRounds: cfg.DiceExact.MaxRounds})},
		{cfg.Wheel.Enabled, wheel.New(&wheel.Config{MaxRounds: cfg.Wheel.MaxRounds})},
		{cfg.Duel.Enabled, duel.New(nil)},
	}
	for _, r := range resolvers {
		if !r.enabled {
			continue
		}
		if err := registry.Register(r.resolver); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
