package bot

import (
	tele "gopkg.in/telebot.v4"

	"guessbot/core/telegram/keyboard"
)

// Callback uniques routed through the registry.
const (
	cbPlay       = "play"
	cbGiveUp     = "give_up"
	cbSettings   = "settings"
	cbMySettings = "my_settings"
	cbSet        = "set"
	cbSetCancel  = "set_cancel"
	cbBackToMenu = "back_to_menu"
)

// Payloads for the shared "set" callback.
const (
	setRange    = "range"
	setTime     = "time"
	setAttempts = "attempts"
)

func mainMenuMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "🎮 Play", Unique: cbPlay},
		},
		[]keyboard.InlineBtn{
			{Text: "⚙️ Settings", Unique: cbSettings},
			{Text: "📋 My settings", Unique: cbMySettings},
		},
	)
}

func inGameMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "🏳️ Give up", Unique: cbGiveUp},
	})
}

func settingsMenuMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "🔢 Number range", Unique: cbSet, Data: setRange},
		},
		[]keyboard.InlineBtn{
			{Text: "⏱ Time limit", Unique: cbSet, Data: setTime},
		},
		[]keyboard.InlineBtn{
			{Text: "🎯 Attempts", Unique: cbSet, Data: setAttempts},
		},
		[]keyboard.InlineBtn{
			{Text: "⬅️ Back", Unique: cbBackToMenu},
		},
	)
}

func cancelInputMarkup() *tele.ReplyMarkup {
	return keyboard.SingleCancelMarkup(cbSetCancel)
}
