package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"guessbot/core/logger"
	"guessbot/core/telegram/callbacks"
	tghelpers "guessbot/core/telegram/helpers"
	"guessbot/game"
	"guessbot/lexicon"
	"log/slog"
)

func (h *Handlers) onSettingsMenu(c tele.Context) error {
	if user, ok := h.sender(c); ok {
		h.fsm.ClearState(user.ID)
	}
	return tghelpers.EditOrSendMD(c, text(c, lexicon.MsgSettingsMenu, nil), settingsMenuMarkup())
}

func (h *Handlers) onMySettings(c tele.Context) error {
	user, ok := h.sender(c)
	if !ok {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	settings, err := h.store.LoadSettings(ctx, user.ID)
	if err != nil {
		if errors.Is(err, game.ErrNoSettings) {
			return tghelpers.EditOrSendMD(c, text(c, lexicon.MsgSettingsNotFound, nil), settingsMenuMarkup())
		}
		logger.Error(ctx, "tg", "settings.load",
			slog.String("status", "fail"),
			slog.Int64("user_id", user.ID),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendMD(c, text(c, lexicon.MsgInternalError, nil), settingsMenuMarkup())
	}
	return tghelpers.EditOrSendMD(c, text(c, lexicon.MsgMySettings, map[string]any{
		"range":      formatRange(settings),
		"time_limit": formatSeconds(settings.TimeLimit),
		"attempts":   formatInt(settings.Attempts),
	}), settingsMenuMarkup())
}

// onSetField routes the shared "set" callback by its payload.
func (h *Handlers) onSetField(c tele.Context) error {
	user, ok := h.sender(c)
	if !ok {
		return nil
	}
	switch callbacks.CallbackPayload(c) {
	case setRange:
		h.fsm.SetState(user.ID, StateAwaitRange)
		return tghelpers.EditOrSendMD(c, text(c, lexicon.MsgAskRange, nil), cancelInputMarkup())
	case setTime:
		h.fsm.SetState(user.ID, StateAwaitTime)
		return tghelpers.EditOrSendMD(c, text(c, lexicon.MsgAskTimeLimit, map[string]any{
			"max": h.limits.MaxTimeLimitSeconds,
		}), cancelInputMarkup())
	case setAttempts:
		h.fsm.SetState(user.ID, StateAwaitAttempts)
		return tghelpers.EditOrSendMD(c, text(c, lexicon.MsgAskAttempts, map[string]any{
			"max": h.limits.MaxAttempts,
		}), cancelInputMarkup())
	}
	return tghelpers.EditOrSendMD(c, text(c, lexicon.MsgSettingsMenu, nil), settingsMenuMarkup())
}

func (h *Handlers) onSetCancel(c tele.Context) error {
	if user, ok := h.sender(c); ok {
		h.fsm.ClearState(user.ID)
	}
	return tghelpers.EditOrSendMD(c, text(c, lexicon.MsgCancelled, nil), settingsMenuMarkup())
}

func (h *Handlers) onRangeInput(c tele.Context) error {
	user, ok := h.sender(c)
	if !ok {
		return nil
	}
	badRange := func() error {
		return tghelpers.SendMD(c, text(c, lexicon.MsgBadRange, map[string]any{
			"max_span": h.limits.MaxRangeSpan,
		}), cancelInputMarkup())
	}

	fields := strings.Fields(c.Text())
	if len(fields) != 2 {
		return badRange()
	}
	start, err1 := strconv.ParseInt(fields[0], 10, 64)
	end, err2 := strconv.ParseInt(fields[1], 10, 64)
	if err1 != nil || err2 != nil || start > end || end-start+1 > h.limits.MaxRangeSpan {
		return badRange()
	}

	ctx := tghelpers.BuildContext(c)
	if err := h.store.EnsureUser(ctx, user.ID); err != nil {
		return h.settingsSaveFailed(c, user.ID, err)
	}
	if err := h.store.SaveRange(ctx, user.ID, start, end); err != nil {
		return h.settingsSaveFailed(c, user.ID, err)
	}
	h.fsm.ClearState(user.ID)
	return tghelpers.SendMD(c, text(c, lexicon.MsgSettingSaved, nil), settingsMenuMarkup())
}

func (h *Handlers) onTimeInput(c tele.Context) error {
	user, ok := h.sender(c)
	if !ok {
		return nil
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(c.Text()))
	if err != nil || seconds < 1 || seconds > h.limits.MaxTimeLimitSeconds {
		return tghelpers.SendMD(c, text(c, lexicon.MsgBadTimeLimit, map[string]any{
			"max": h.limits.MaxTimeLimitSeconds,
		}), cancelInputMarkup())
	}

	ctx := tghelpers.BuildContext(c)
	if err := h.store.EnsureUser(ctx, user.ID); err != nil {
		return h.settingsSaveFailed(c, user.ID, err)
	}
	if err := h.store.SaveTimeLimit(ctx, user.ID, seconds); err != nil {
		return h.settingsSaveFailed(c, user.ID, err)
	}
	h.fsm.ClearState(user.ID)
	return tghelpers.SendMD(c, text(c, lexicon.MsgSettingSaved, nil), settingsMenuMarkup())
}

func (h *Handlers) onAttemptsInput(c tele.Context) error {
	user, ok := h.sender(c)
	if !ok {
		return nil
	}
	attempts, err := strconv.Atoi(strings.TrimSpace(c.Text()))
	if err != nil || attempts < 1 || attempts > h.limits.MaxAttempts {
		return tghelpers.SendMD(c, text(c, lexicon.MsgBadAttempts, map[string]any{
			"max": h.limits.MaxAttempts,
		}), cancelInputMarkup())
	}

	ctx := tghelpers.BuildContext(c)
	if err := h.store.EnsureUser(ctx, user.ID); err != nil {
		return h.settingsSaveFailed(c, user.ID, err)
	}
	if err := h.store.SaveAttempts(ctx, user.ID, attempts); err != nil {
		return h.settingsSaveFailed(c, user.ID, err)
	}
	h.fsm.ClearState(user.ID)
	return tghelpers.SendMD(c, text(c, lexicon.MsgSettingSaved, nil), settingsMenuMarkup())
}

func (h *Handlers) settingsSaveFailed(c tele.Context, userID int64, err error) error {
	logger.Error(tghelpers.BuildContext(c), "tg", "settings.save",
		slog.String("status", "fail"),
		slog.Int64("user_id", userID),
		slog.String("err", err.Error()),
	)
	if sendErr := tghelpers.SendMD(c, text(c, lexicon.MsgInternalError, nil), settingsMenuMarkup()); sendErr != nil {
		return sendErr
	}
	return err
}

func formatRange(s *game.Settings) string {
	if s == nil || s.RangeStart == nil || s.RangeEnd == nil {
		return lexicon.Unset
	}
	return fmt.Sprintf("%d–%d", *s.RangeStart, *s.RangeEnd)
}

func formatSeconds(v *int) string {
	if v == nil {
		return lexicon.Unset
	}
	return fmt.Sprintf("%d s", *v)
}

func formatInt(v *int) string {
	if v == nil {
		return lexicon.Unset
	}
	return strconv.Itoa(*v)
}
