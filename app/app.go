package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"guessbot/bot"
	"guessbot/core/bootstrap"
	coretelegram "guessbot/core/telegram"
	"guessbot/core/telegram/router"
	"guessbot/core/telegram/sender"
	"guessbot/core/telegram/state"
	"guessbot/game"
	"guessbot/storage"
)

// App owns all long-lived components of the running bot.
type App struct {
	cfg        *Config
	db         *sqlx.DB
	store      *storage.Store
	fsm        state.Manager
	dispatcher *sender.Dispatcher
	notifier   *bot.TelegramNotifier
	service    *game.Service
	handlers   *bot.Handlers
}

// Bootstrap initializes logging, database, and migrations, then wires
// the game service and bot handlers.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	result, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Core,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	store := storage.New(result.DB)
	fsm := state.NewMemoryManager()
	dispatcher := sender.NewDispatcher(sender.Options{})
	notifier := bot.NewNotifier(dispatcher, fsm)
	service := game.New(store, notifier, game.Options{})
	handlers := bot.NewHandlers(service, store, fsm, bot.Limits{
		MaxAttempts:         cfg.Game.MaxAttempts,
		MaxTimeLimitSeconds: cfg.Game.MaxTimeLimitSeconds,
		MaxRangeSpan:        cfg.Game.MaxRangeSpan,
	})

	return &App{
		cfg:        cfg,
		db:         result.DB,
		store:      store,
		fsm:        fsm,
		dispatcher: dispatcher,
		notifier:   notifier,
		service:    service,
		handlers:   handlers,
	}, nil
}

// TelegramRunOptions builds the runtime wiring consumed by the core runner.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.handlers.Register(reg)
	reg.SetTextFallback(a.handlers.UnknownText)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(a.fsm, reg, router.TextOptions{
		UnknownText: a.handlers.UnknownText,
	})...)

	return coretelegram.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    reg,
		Dispatcher:  a.dispatcher,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Core, nil),
		Routes:      routes,
		OnStart: func(_ context.Context, rt coretelegram.Runtime) error {
			a.notifier.Bind(rt.Bot)
			return nil
		},
		OnStop: func(_ context.Context, _ coretelegram.Runtime) error {
			a.service.Close()
			return a.db.Close()
		},
	}, nil
}
