package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"eduvane/api/internal/orchestrator"
	"eduvane/api/internal/telegram"
)

func newBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot (long polling)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			orch, err := a.pipeline()
			if err != nil {
				return err
			}
			return runBot(ctx, a, orch)
		},
	}
}

func runBot(ctx context.Context, a *app, orch *orchestrator.Orchestrator) error {
	if a.cfg.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is not set")
	}
	bot, err := tgbotapi.NewBotAPI(a.cfg.TelegramBotToken)
	if err != nil {
		return err
	}
	a.log.Info("telegram bot started", zap.String("username", bot.Self.UserName))

	r := telegram.NewRouter(bot, orch, a.store, a.log)
	telegram.Poll(ctx, bot, a.log.Named("telegram"), r.HandleUpdate)
	return nil
}
