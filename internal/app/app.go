// Package app wires the configuration, ledger, chat client and command
// handlers together and runs the event loop.
package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/guild-audit-bot/internal/app/cmdHandlers"
	"github.com/example/guild-audit-bot/internal/config"
	"github.com/example/guild-audit-bot/internal/repository"
	"github.com/example/guild-audit-bot/internal/service"
	"github.com/example/guild-audit-bot/pkg/chat"
)

// chatSource adapts the chat client's concrete history iterator to the
// service-layer interface.
type chatSource struct {
	*chat.Client
}

func (s chatSource) History(channelID int64, before, after *time.Time) service.MessageIter {
	return s.Client.History(channelID, before, after)
}

// App coordinates the services and the chat client.
type App struct {
	cfg     *config.Config
	client  *chat.Client
	ledger  *repository.SQLLedger
	handler *cmdHandlers.CmdHandler
	logger  zerolog.Logger
}

func New(cfg *config.Config, ledger *repository.SQLLedger, logger zerolog.Logger) *App {
	client := chat.NewClient(cfg.BotToken, cfg.APIBaseURL)
	src := chatSource{Client: client}
	locks := repository.NewKeyedMutex()

	handler := cmdHandlers.NewCmdHandler(
		client,
		service.NewHistoryAggregator(src, logger),
		service.NewVoiceLogService(ledger.Book(cfg.VoiceLogBook), client, cfg.DayRollover, locks, logger),
		service.NewNotifyService(ledger.Book(cfg.NotifyBook), locks, logger),
		service.NewIgnoreListService(ledger.Book(cfg.IgnoreListBook), locks, logger),
		service.NewDirectoryService(ledger.Book(cfg.DirectoryBook), client, locks, logger),
		service.NewReactionAuditor(client, logger),
		logger,
	)

	return &App{
		cfg:     cfg,
		client:  client,
		ledger:  ledger,
		handler: handler,
		logger:  logger,
	}
}

func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.handleEvents(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	return nil
}

// handleEvents long-polls the gateway and dispatches each event on its own
// goroutine so one slow command never blocks the loop.
func (a *App) handleEvents(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()

	offset := 0
	for {
		events, err := a.client.Events(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Error().Err(err).Msg("poll events")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		for _, event := range events {
			event := event
			offset = event.ID + 1
			wg.Add(1)
			go func() {
				defer wg.Done()
				a.handleEvent(ctx, event)
			}()
		}
	}
}

func (a *App) handleEvent(ctx context.Context, event chat.Event) {
	switch event.Type {
	case chat.EventReady:
		a.handler.HandleReady(ctx, event.GuildIDs)
	case chat.EventMessage:
		if event.Message != nil {
			a.handler.HandleMessage(ctx, event.Message)
		}
	case chat.EventVoiceUpdate:
		if event.VoiceUpdate != nil {
			a.handler.HandleVoiceUpdate(ctx, *event.VoiceUpdate)
		}
	}
}
