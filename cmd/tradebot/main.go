package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/polybot/internal/clock"
	"github.com/web3guy0/polybot/internal/config"
	"github.com/web3guy0/polybot/internal/controllink"
	"github.com/web3guy0/polybot/internal/eventrouter"
	"github.com/web3guy0/polybot/internal/gameio"
	"github.com/web3guy0/polybot/internal/ledger"
	"github.com/web3guy0/polybot/internal/notifier"
	"github.com/web3guy0/polybot/internal/orchestrator"
	"github.com/web3guy0/polybot/internal/priceclient"
	"github.com/web3guy0/polybot/internal/queue"
	"github.com/web3guy0/polybot/internal/session"
	"github.com/web3guy0/polybot/internal/storage"
	"github.com/web3guy0/polybot/internal/webhook"
)

const version = "v1.0"

func main() {
	// ═══════════════════════════════════════════════════════════════════
	// BOOTSTRAP
	// ═══════════════════════════════════════════════════════════════════

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	} else {
		log.Info().Msg("✅ .env file loaded successfully")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration load failed")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().Msg("═══════════════════════════════════════════════════════")
	log.Info().Msgf("   TRADEBOT %s — Action Orchestrator", version)
	log.Info().Msg("═══════════════════════════════════════════════════════")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ═══════════════════════════════════════════════════════════════════
	// LAYER 1: STORAGE
	// ═══════════════════════════════════════════════════════════════════

	store, err := storage.New(cfg.DatabaseDSN)
	if err != nil {
		log.Warn().Err(err).Msg("storage unavailable — running without persistence")
		store = nil
	} else {
		log.Info().Msg("✅ storage layer initialized")
	}

	// ═══════════════════════════════════════════════════════════════════
	// LAYER 2: GAME I/O
	// ═══════════════════════════════════════════════════════════════════

	// The real adapter over the underlying game-protocol library is an
	// external collaborator outside this module's scope (spec.md §1, §6
	// "Game-I/O adapter contract"). gameio.Fake satisfies the same
	// interface and is wired here so the orchestrator has a concrete
	// collaborator to run against; swap in a real implementation of
	// gameio.GameIO to drive an actual game client.
	io := gameio.NewFake()
	log.Info().Msg("✅ game I/O adapter initialized (fake — see internal/gameio)")

	// ═══════════════════════════════════════════════════════════════════
	// LAYER 3: DOMAIN COLLABORATORS
	// ═══════════════════════════════════════════════════════════════════

	clk := clock.Real{}
	sess := session.New()
	led := ledger.New(cfg.BazaarTaxRate, clk)
	cmdQueue := queue.New()
	priceCl := priceclient.New(cfg.PriceHostURL, cfg.HypixelAPIURL)
	priceCl.Start(ctx, 60*time.Second)
	log.Info().Msg("✅ price client initialized")

	var notif *notifier.Notifier
	notif, err = notifier.New(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Warn().Err(err).Msg("telegram notifier unavailable")
	} else if notif != nil {
		log.Info().Msg("✅ telegram notifier initialized")
	}

	var reporter *webhook.Client
	if cfg.WebhookURL != "" {
		reporter = webhook.New(cfg.WebhookURL)
		log.Info().Msg("✅ webhook reporter initialized")
	}

	link := controllink.New(cfg.SessionURL(), nil)

	orch := orchestrator.New(orchestrator.Deps{
		Config:      cfg,
		GameIO:      io,
		Queue:       cmdQueue,
		Session:     sess,
		Ledger:      led,
		Link:        link,
		Reporter:    reporter,
		Notifier:    notif,
		PriceClient: priceCl,
		Clock:       clk,
	})

	// The Dispatcher must be set before Run starts reading, so the client
	// is constructed with a nil dispatcher above and rebound here via a
	// thin adapter — controllink.Client takes its Dispatcher at
	// construction, so we recreate it bound to the now-existing
	// orchestrator.
	link = controllink.New(cfg.SessionURL(), orch)

	router := eventrouter.New(orch, sess, led, clk)

	log.Info().Msg("✅ orchestrator, event router, command queue wired")

	// ═══════════════════════════════════════════════════════════════════
	// RUN LOOPS
	// ═══════════════════════════════════════════════════════════════════

	go cmdQueue.RunLoop(ctx)
	go link.Run(ctx)
	go routeChatLines(ctx, io, router)

	orch.EndGracePeriod()
	go orch.RunStartupReconcile(ctx)

	if notif != nil {
		notif.NotifyStartup(cfg.InGameName)
	}

	log.Info().Msg("🚀 running...")

	// ═══════════════════════════════════════════════════════════════════
	// GRACEFUL SHUTDOWN
	// ═══════════════════════════════════════════════════════════════════

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Warn().Msg("🛑 shutdown signal received")
	cancel()
	link.Stop()
	priceCl.Stop()
	if store != nil {
		snap := &storage.SessionSnapshot{
			Purse:          sess.Get().Purse,
			OpenOrderCount: sess.Get().OpenOrderCount,
			CapturedAt:     clk.Now(),
		}
		if err := store.SaveSessionSnapshot(snap); err != nil {
			log.Warn().Err(err).Msg("failed to persist final session snapshot")
		}
	}
	log.Info().Msg("👋 shutdown complete")
}

// routeChatLines feeds the Event Router's single-consumer loop from the
// Game I/O chat stream (spec.md §5 "one chat-line consumer").
func routeChatLines(ctx context.Context, io gameio.GameIO, router *eventrouter.Router) {
	ch := make(chan string, 256)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-io.ChatMessages():
				if !ok {
					return
				}
				select {
				case ch <- line.Stripped:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	router.RunLoop(ctx, ch)
}
