package bot

import (
	"context"
	"errors"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"guessbot/core/logger"
	"guessbot/core/telegram/sender"
	"guessbot/core/telegram/state"
	"guessbot/game"
	"guessbot/lexicon"
	"log/slog"
)

// terminalKeys are game messages after which the user is back in the menu.
var terminalKeys = map[string]struct{}{
	game.MsgGameWon:          {},
	game.MsgGameLostAttempts: {},
	game.MsgGameLostTime:     {},
	game.MsgGameGivenUp:      {},
}

// TelegramNotifier implements game.Notifier over the outbound
// dispatcher. Delivery is fire-and-forget: render or send failures are
// logged and never surface into the game core.
type TelegramNotifier struct {
	disp *sender.Dispatcher
	fsm  state.Manager
	bot  atomic.Pointer[tele.Bot]
}

// NewNotifier creates a notifier; Bind must be called once the bot is up.
func NewNotifier(disp *sender.Dispatcher, fsm state.Manager) *TelegramNotifier {
	return &TelegramNotifier{disp: disp, fsm: fsm}
}

// Bind wires the running bot instance used for out-of-band sends
// (timeout notifications have no inbound update to reply to).
func (n *TelegramNotifier) Bind(b *tele.Bot) {
	n.bot.Store(b)
}

// Notify renders the keyed template and enqueues the message for the
// user. Terminal game messages also drop the user's in-game FSM state
// so the next text input routes back to the menu fallback.
func (n *TelegramNotifier) Notify(ctx context.Context, userID int64, key string, params map[string]any) {
	if _, terminal := terminalKeys[key]; terminal && n.fsm != nil {
		n.fsm.ClearState(userID)
	}

	text, err := lexicon.Render(key, params)
	if err != nil {
		logger.Error(ctx, "tg.notify", "render.fail",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("cb_key", key),
			slog.String("err", err.Error()),
		)
		return
	}

	b := n.bot.Load()
	if b == nil {
		logger.Warn(ctx, "tg.notify", "send.skip",
			slog.String("status", "skip"),
			slog.Int64("user_id", userID),
			slog.String("cb_key", key),
			slog.String("cause", "bot not bound"),
		)
		return
	}

	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markupFor(key)}
	run := func() error {
		_, err := b.Send(tele.ChatID(userID), text, opts)
		return err
	}

	if n.disp == nil {
		n.logIfFailed(ctx, userID, key, run())
		return
	}
	if err := n.disp.Enqueue(ctx, "notify."+key, "sendMessage", run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			n.logIfFailed(ctx, userID, key, run())
			return
		}
		n.logIfFailed(ctx, userID, key, err)
	}
}

func (n *TelegramNotifier) logIfFailed(ctx context.Context, userID int64, key string, err error) {
	if err == nil {
		return
	}
	logger.Error(ctx, "tg.notify", "send.fail",
		slog.String("status", "fail"),
		slog.Int64("user_id", userID),
		slog.String("cb_key", key),
		slog.String("err", err.Error()),
	)
}

func markupFor(key string) *tele.ReplyMarkup {
	if _, terminal := terminalKeys[key]; terminal {
		return mainMenuMarkup()
	}
	switch key {
	case game.MsgPlayPrompt, game.MsgNumberHigher, game.MsgNumberLower:
		return inGameMarkup()
	}
	return nil
}
