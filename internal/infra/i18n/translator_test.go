//go:build !integration

package i18n

import (
	"strings"
	"testing"
)

func TestTranslator(t *testing.T) {
	data := []byte(`
greeting: "Привет, %s!"
plain: "Просто текст"
`)

	tr, err := newTranslatorFromBytes(data)
	if err != nil {
		t.Fatalf("failed to build translator: %v", err)
	}

	t.Run("should format a key with arguments", func(t *testing.T) {
		if got := tr.T("greeting", "мир"); got != "Привет, мир!" {
			t.Errorf("unexpected result: %q", got)
		}
	})

	t.Run("should return a plain key verbatim", func(t *testing.T) {
		if got := tr.T("plain"); got != "Просто текст" {
			t.Errorf("unexpected result: %q", got)
		}
	})

	t.Run("should echo an unknown key", func(t *testing.T) {
		if got := tr.T("missing_key"); got != "missing_key" {
			t.Errorf("unexpected result: %q", got)
		}
	})

	t.Run("should reject malformed yaml", func(t *testing.T) {
		if _, err := newTranslatorFromBytes([]byte("not: [valid")); err == nil {
			t.Error("expected a parse error")
		}
	})
}

func TestEmbeddedRussianLocale(t *testing.T) {
	tr, err := NewTranslator(LocalesFS, "ru")
	if err != nil {
		t.Fatalf("failed to load embedded locale: %v", err)
	}

	// Spot-check a few keys the flows depend on.
	for _, key := range []string{"welcome", "main_menu_prompt", "payment_instructions", "admin_panel", "broadcast_prompt"} {
		if got := tr.T(key); got == key {
			t.Errorf("key %q missing from ru.yaml", key)
		}
	}

	if got := tr.T("btn_pay_plan", "1 месяц", 5990); !strings.Contains(got, "5990") {
		t.Errorf("btn_pay_plan must include the amount, got %q", got)
	}
}

func TestUnknownLocale(t *testing.T) {
	if _, err := NewTranslator(LocalesFS, "xx"); err == nil {
		t.Error("expected an error for a missing locale file")
	}
}
