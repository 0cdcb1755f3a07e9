// Package cli provides the command-line interface for llm-tg-bot.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/elmariachi111/llm-tg-bot/internal/bot"
	"github.com/elmariachi111/llm-tg-bot/internal/config"
	"github.com/elmariachi111/llm-tg-bot/internal/conversation"
	"github.com/elmariachi111/llm-tg-bot/internal/llm"
	"github.com/elmariachi111/llm-tg-bot/internal/metrics"
	"github.com/elmariachi111/llm-tg-bot/internal/server"
	"github.com/elmariachi111/llm-tg-bot/internal/telegram"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	configFile string
)

// rootCmd runs the bot when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "llm-tg-bot",
	Short: "Telegram bot that relays chats to a language model",
	Long: `llm-tg-bot long-polls the Telegram Bot API, keeps a short per-chat
history and answers plain text with a language model reply.

Configuration comes from environment variables, optionally overlaid on a YAML
file passed with --config.`,
	Version:       Version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (environment variables take precedence)")
}

func loadConfig() (config.Config, error) {
	if configFile == "" {
		return config.Load(), nil
	}
	return config.LoadFile(configFile)
}

// run wires all components and blocks until ctx is cancelled.
func run(ctx context.Context, cfg config.Config) error {
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel, cfg.Env)
	defer func() { _ = cleanup() }()

	mode, err := bot.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	store := conversation.NewStore(cfg.HistoryWindow)

	model, err := llm.NewModel(ctx, cfg, collector, logger)
	if err != nil {
		return fmt.Errorf("init model: %w", err)
	}

	client := telegram.NewClient(nil, cfg.TelegramAPIBase, cfg.TelegramToken)
	me, err := client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}

	router, err := bot.New(bot.Options{
		Messenger:          telegram.NewMessenger(client, collector),
		Completer:          model,
		History:            store,
		Mode:               mode,
		AcknowledgeUploads: cfg.AckUploads,
		LLMTimeout:         cfg.LLMTimeout,
		SendTimeout:        cfg.SendTimeout,
		Logger:             logger,
		Metrics:            collector,
	})
	if err != nil {
		return fmt.Errorf("init router: %w", err)
	}

	// Handlers outlive the signal context so queued updates finish on shutdown.
	dispatcher := bot.NewDispatcher(context.WithoutCancel(ctx), func(ctx context.Context, u bot.Update) {
		router.Handle(ctx, u)
	}, bot.DispatcherOptions{
		Concurrency: cfg.MaxConcurrency,
		Logger:      logger,
	})

	printBanner(os.Stdout, banner{
		version: Version,
		fields: []bannerField{
			{"bot", "@" + me.Username},
			{"mode", mode.String()},
			{"provider", cfg.LLMProvider},
			{"model", model.Model()},
			{"history", strconv.Itoa(store.Window()) + " turns"},
			{"health", healthLabel(cfg.HealthAddr)},
		},
	})
	logger.Info("bot started",
		"bot_username", me.Username,
		"mode", mode.String(),
		"provider", cfg.LLMProvider,
		"model", model.Model(),
		"history_window", store.Window(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		poller := telegram.NewPoller(client, cfg.PollTimeout, logger, collector)
		err := poller.Run(gctx, dispatcher.Submit)
		dispatcher.Close()
		logger.Info("poller stopped", "offset", poller.Offset())
		return err
	})
	if cfg.HealthAddr != "" {
		srv := server.New(cfg.HealthAddr, Version, collector, func() (int, int) {
			return store.Conversations(), dispatcher.ActiveChats()
		}, logger)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	err = g.Wait()
	logger.Info("bot stopped")
	return err
}

func healthLabel(addr string) string {
	if addr == "" {
		return "disabled"
	}
	return addr
}
