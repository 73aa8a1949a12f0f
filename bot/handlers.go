// Package bot wires the Telegram surface: commands, callbacks, the
// in-game input handler, and the settings conversation flow.
package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"guessbot/core/buildinfo"
	"guessbot/core/logger"
	tg "guessbot/core/telegram"
	"guessbot/core/telegram/commands"
	tghelpers "guessbot/core/telegram/helpers"
	"guessbot/core/telegram/state"
	"guessbot/game"
	"guessbot/lexicon"
	"guessbot/storage"
	"log/slog"
)

// Conversation states handled by the FSM manager.
const (
	StateInGame        state.State = "in_game"
	StateAwaitRange    state.State = "settings_await_range"
	StateAwaitTime     state.State = "settings_await_time"
	StateAwaitAttempts state.State = "settings_await_attempts"
)

// Limits bounds what the settings flow accepts.
type Limits struct {
	MaxAttempts         int
	MaxTimeLimitSeconds int
	MaxRangeSpan        int64
}

// Handlers holds the bot-facing handlers and their dependencies.
type Handlers struct {
	svc    *game.Service
	store  *storage.Store
	fsm    state.Manager
	limits Limits
}

// NewHandlers builds the handler set.
func NewHandlers(svc *game.Service, store *storage.Store, fsm state.Manager, limits Limits) *Handlers {
	return &Handlers{svc: svc, store: store, fsm: fsm, limits: limits}
}

// Register wires commands, callbacks, and FSM state handlers into the registry.
func (h *Handlers) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.onStart,
		Description: "Main menu",
		Aliases:     []string{"menu"},
	})
	reg.RegisterCommand("/play", commands.Command{
		Handler:     h.onPlay,
		Description: "Start a new game",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     h.onHelp,
		Description: "How to play",
	})
	reg.RegisterCommand("/version", commands.Command{
		Handler:     h.onVersion,
		Description: "Build information",
		AdminOnly:   true,
		Hidden:      true,
	})

	_ = reg.RegisterCallback(cbPlay, h.onPlay)
	_ = reg.RegisterCallback(cbGiveUp, h.onGiveUp)
	_ = reg.RegisterCallback(cbSettings, h.onSettingsMenu)
	_ = reg.RegisterCallback(cbMySettings, h.onMySettings)
	_ = reg.RegisterCallback(cbSet, h.onSetField)
	_ = reg.RegisterCallback(cbSetCancel, h.onSetCancel)
	_ = reg.RegisterCallback(cbBackToMenu, h.onBackToMenu)

	state.RegisterHandler(StateInGame, h.onGuess)
	state.RegisterHandler(StateAwaitRange, h.onRangeInput)
	state.RegisterHandler(StateAwaitTime, h.onTimeInput)
	state.RegisterHandler(StateAwaitAttempts, h.onAttemptsInput)
}

// sender resolves the inbound user; an update without one is dropped
// (logged) without touching any session state.
func (h *Handlers) sender(c tele.Context) (*tele.User, bool) {
	user := c.Sender()
	if user == nil {
		logger.Warn(tghelpers.BuildContext(c), "tg", "update.no_sender",
			slog.String("status", "skip"),
		)
		return nil, false
	}
	return user, true
}

// text renders a lexicon key, falling back to a generic error line so a
// template problem never leaves the user without a reply.
func text(c tele.Context, key string, params map[string]any) string {
	s, err := lexicon.Render(key, params)
	if err != nil {
		logger.Error(tghelpers.BuildContext(c), "tg", "render.fail",
			slog.String("status", "fail"),
			slog.String("cb_key", key),
			slog.String("err", err.Error()),
		)
		return "⚠️"
	}
	return s
}

func (h *Handlers) onStart(c tele.Context) error {
	user, ok := h.sender(c)
	if !ok {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.store.EnsureUser(ctx, user.ID); err != nil {
		logger.Error(ctx, "tg", "user.ensure",
			slog.String("status", "fail"),
			slog.Int64("user_id", user.ID),
			slog.String("err", err.Error()),
		)
	}
	h.fsm.ClearState(user.ID)
	return tghelpers.SendMD(c, text(c, lexicon.MsgMainMenu, nil), mainMenuMarkup())
}

func (h *Handlers) onHelp(c tele.Context) error {
	return tghelpers.SendMD(c, text(c, lexicon.MsgHelp, nil), mainMenuMarkup())
}

func (h *Handlers) onVersion(c tele.Context) error {
	return tghelpers.SendText(c, fmt.Sprintf("version %s (%s) built %s",
		buildinfo.Version, buildinfo.Commit, buildinfo.Date))
}

// onPlay serves both the /play command and the Play button.
func (h *Handlers) onPlay(c tele.Context) error {
	user, ok := h.sender(c)
	if !ok {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.store.EnsureUser(ctx, user.ID); err != nil {
		logger.Error(ctx, "tg", "user.ensure",
			slog.String("status", "fail"),
			slog.Int64("user_id", user.ID),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendMD(c, text(c, lexicon.MsgInternalError, nil), mainMenuMarkup())
	}

	attempts, err := h.svc.Start(ctx, user.ID)
	switch {
	case err == nil:
		h.fsm.SetState(user.ID, StateInGame)
		return tghelpers.SendMD(c, text(c, game.MsgPlayPrompt, map[string]any{
			"attempts_left": attempts,
		}), inGameMarkup())
	case errors.Is(err, game.ErrNoSettings):
		return tghelpers.SendMD(c, text(c, lexicon.MsgSettingsNotFound, nil), settingsMenuMarkup())
	case errors.Is(err, game.ErrGameInProgress):
		h.fsm.SetState(user.ID, StateInGame)
		return tghelpers.SendMD(c, text(c, lexicon.MsgGameInProgress, nil), inGameMarkup())
	default:
		var incomplete *game.IncompleteSettingsError
		if errors.As(err, &incomplete) {
			return tghelpers.SendMD(c, text(c, lexicon.MsgMissingSettings, map[string]any{
				"missing": strings.Join(incomplete.Missing, ", "),
			}), settingsMenuMarkup())
		}
		if sendErr := tghelpers.SendMD(c, text(c, lexicon.MsgInternalError, nil), mainMenuMarkup()); sendErr != nil {
			return sendErr
		}
		return err
	}
}

// onGuess consumes text input while a game is running. Non-numeric
// input never reaches the evaluator; it is filtered here.
func (h *Handlers) onGuess(c tele.Context) error {
	user, ok := h.sender(c)
	if !ok {
		return nil
	}
	guess, err := strconv.ParseInt(strings.TrimSpace(c.Text()), 10, 64)
	if err != nil {
		return tghelpers.SendMD(c, text(c, lexicon.MsgGuessNotNumber, nil), inGameMarkup())
	}

	ctx := tghelpers.BuildContext(c)
	switch err := h.svc.Evaluate(ctx, user.ID, guess); {
	case err == nil:
		return nil
	case errors.Is(err, game.ErrNoActiveGame):
		h.fsm.ClearState(user.ID)
		return tghelpers.SendMD(c, text(c, lexicon.MsgNoActiveGame, nil), mainMenuMarkup())
	default:
		if sendErr := tghelpers.SendMD(c, text(c, lexicon.MsgInternalError, nil), mainMenuMarkup()); sendErr != nil {
			return sendErr
		}
		return err
	}
}

func (h *Handlers) onGiveUp(c tele.Context) error {
	user, ok := h.sender(c)
	if !ok {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	switch err := h.svc.Resign(ctx, user.ID); {
	case err == nil:
		return nil
	case errors.Is(err, game.ErrNoActiveGame):
		h.fsm.ClearState(user.ID)
		return tghelpers.SendMD(c, text(c, lexicon.MsgNoActiveGame, nil), mainMenuMarkup())
	default:
		if sendErr := tghelpers.SendMD(c, text(c, lexicon.MsgInternalError, nil), mainMenuMarkup()); sendErr != nil {
			return sendErr
		}
		return err
	}
}

func (h *Handlers) onBackToMenu(c tele.Context) error {
	if user, ok := h.sender(c); ok {
		h.fsm.ClearState(user.ID)
	}
	return tghelpers.EditOrSendMD(c, text(c, lexicon.MsgMainMenu, nil), mainMenuMarkup())
}

// UnknownText replies to text outside any conversation state.
func (h *Handlers) UnknownText(c tele.Context) error {
	return tghelpers.SendMD(c, text(c, lexicon.MsgUnknownInput, nil), mainMenuMarkup())
}
