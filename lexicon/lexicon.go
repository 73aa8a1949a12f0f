// Package lexicon maps message keys to user-facing Telegram texts.
// Texts use Markdown; dynamic values are injected by name so callers
// never concatenate user-visible strings by hand.
package lexicon

import (
	"fmt"
	"strings"
	"text/template"

	"guessbot/game"
)

// Keys owned by the bot layer; game outcome keys live in the game package.
const (
	MsgMainMenu         = "main_menu"
	MsgHelp             = "help"
	MsgUnknownInput     = "unknown_input"
	MsgGuessNotNumber   = "guess_not_number"
	MsgGameInProgress   = "game_in_progress"
	MsgNoActiveGame     = "no_active_game"
	MsgMissingSettings  = "missing_settings"
	MsgSettingsNotFound = "settings_not_found"
	MsgSettingsMenu     = "settings_menu"
	MsgMySettings       = "my_settings"
	MsgAskRange         = "ask_range"
	MsgAskTimeLimit     = "ask_time_limit"
	MsgAskAttempts      = "ask_attempts"
	MsgBadRange         = "bad_range"
	MsgBadTimeLimit     = "bad_time_limit"
	MsgBadAttempts      = "bad_attempts"
	MsgSettingSaved     = "setting_saved"
	MsgCancelled        = "cancelled"
	MsgInternalError    = "internal_error"
)

var texts = map[string]string{
	game.MsgPlayPrompt:       "🎯 I picked a number. You have *{{.attempts_left}}* attempts. Send me your guess!",
	game.MsgNumberHigher:     "⬆️ My number is *higher*. Attempts left: {{.attempts_left}}",
	game.MsgNumberLower:      "⬇️ My number is *lower*. Attempts left: {{.attempts_left}}",
	game.MsgGameWon:          "🏆 Correct! You guessed it in {{.attempts}} attempt(s) and {{.seconds_passed}} seconds.",
	game.MsgGameLostAttempts: "😞 You are out of attempts. Game over!",
	game.MsgGameLostTime:     "⏰ Time is up ({{.time_limit}} seconds). You lost this round.",
	game.MsgGameGivenUp:      "🏳️ Game over, you gave up. The number stays my secret.",

	MsgMainMenu:         "🎲 *Guess the number*\nConfigure the game and press Play.",
	MsgHelp:             "I pick a secret number in your range; you guess it within the time limit and attempt budget. Set everything up under Settings, then press Play.",
	MsgUnknownInput:     "I did not understand that. Use the menu below.",
	MsgGuessNotNumber:   "Send a whole number as your guess.",
	MsgGameInProgress:   "You already have a game running. Finish it first.",
	MsgNoActiveGame:     "There is no game running. Press Play to start one.",
	MsgMissingSettings:  "⚠️ Before playing, set: {{.missing}}.",
	MsgSettingsNotFound: "You have no game settings yet. Let's set them up.",
	MsgSettingsMenu:     "⚙️ *Settings*\nPick what to change.",
	MsgMySettings:       "⚙️ *Your settings*\nRange: {{.range}}\nTime limit: {{.time_limit}}\nAttempts: {{.attempts}}",
	MsgAskRange:         "Send the number range as two integers, e.g. `1 100`.",
	MsgAskTimeLimit:     "Send the time limit in seconds (1–{{.max}}).",
	MsgAskAttempts:      "Send the attempt count (1–{{.max}}).",
	MsgBadRange:         "That is not a valid range. Send two integers where the first is not greater than the second, spanning at most {{.max_span}} numbers.",
	MsgBadTimeLimit:     "That is not a valid time limit. Send a whole number of seconds between 1 and {{.max}}.",
	MsgBadAttempts:      "That is not a valid attempt count. Send a whole number between 1 and {{.max}}.",
	MsgSettingSaved:     "✅ Saved.",
	MsgCancelled:        "Cancelled.",
	MsgInternalError:    "Something went wrong on my side. Try again in a moment.",
}

var templates = func() map[string]*template.Template {
	out := make(map[string]*template.Template, len(texts))
	for key, text := range texts {
		out[key] = template.Must(template.New(key).Option("missingkey=error").Parse(text))
	}
	return out
}()

// Render produces the text for key with the given named parameters.
func Render(key string, params map[string]any) (string, error) {
	tpl, ok := templates[key]
	if !ok {
		return "", fmt.Errorf("lexicon: unknown key %q", key)
	}
	if params == nil {
		params = map[string]any{}
	}
	var b strings.Builder
	if err := tpl.Execute(&b, params); err != nil {
		return "", fmt.Errorf("lexicon: render %q: %w", key, err)
	}
	return b.String(), nil
}

// Unset is the placeholder shown for a setting the user has not configured.
const Unset = "—"
