package lexicon

import (
	"strings"
	"testing"

	"guessbot/game"
)

func TestRenderSubstitutesParams(t *testing.T) {
	got, err := Render(game.MsgGameWon, map[string]any{
		"attempts":       3,
		"seconds_passed": 17,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(got, "3 attempt") || !strings.Contains(got, "17 seconds") {
		t.Fatalf("rendered text missing params: %q", got)
	}
}

func TestRenderNoParams(t *testing.T) {
	got, err := Render(MsgMainMenu, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got == "" {
		t.Fatal("rendered text is empty")
	}
}

func TestRenderUnknownKey(t *testing.T) {
	if _, err := Render("no_such_key", nil); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestRenderMissingParam(t *testing.T) {
	if _, err := Render(game.MsgPlayPrompt, nil); err == nil {
		t.Fatal("expected error when a referenced param is absent")
	}
}

func TestAllTextsRender(t *testing.T) {
	params := map[string]any{
		"attempts_left":  5,
		"attempts":       2,
		"seconds_passed": 40,
		"time_limit":     60,
		"missing":        "number range",
		"range":          "1–100",
		"max":            100,
		"max_span":       1000000,
	}
	for key := range texts {
		if _, err := Render(key, params); err != nil {
			t.Errorf("render %q: %v", key, err)
		}
	}
}
