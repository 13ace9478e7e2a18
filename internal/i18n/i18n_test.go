package i18n

import (
	"context"
	"strings"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "AppTitle")
	if got != "PulsePoint" {
		t.Errorf("T(AppTitle) = %q, want 'PulsePoint'", got)
	}

	got = T(ctx, "ShareExpired")
	if !strings.Contains(got, "expired") {
		t.Errorf("T(ShareExpired) = %q, want expiry message", got)
	}
}

func TestTranslateSpanish(t *testing.T) {
	ctx := initLang(t, "es")

	got := T(ctx, "ShareExpired")
	if !strings.Contains(got, "expirado") {
		t.Errorf("T(ShareExpired) = %q, want Spanish expiry message", got)
	}

	got = T(ctx, "ShareNotFound")
	if !strings.Contains(got, "enlace") {
		t.Errorf("T(ShareNotFound) = %q, want Spanish not-found message", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "DaysRemaining", 1)
	if got1 != "This link expires in 1 day." {
		t.Errorf("Tp(DaysRemaining, 1) = %q", got1)
	}

	got5 := Tp(ctx, "DaysRemaining", 5)
	if got5 != "This link expires in 5 days." {
		t.Errorf("Tp(DaysRemaining, 5) = %q", got5)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "SharedBy", map[string]any{"Name": "Jordan R."})
	if got != "Shared for Jordan R." {
		t.Errorf("Td(SharedBy) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}
