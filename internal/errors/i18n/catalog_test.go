package i18n

import "testing"

func TestGetCatalogFallsBackToEnUS(t *testing.T) {
	tests := []string{"", "en-US", "en", "pt-BR", "garbage"}
	for _, locale := range tests {
		c := GetCatalog(locale)
		if c == nil {
			t.Fatalf("GetCatalog(%q) returned nil", locale)
		}
		if c.Locale() != "en-US" {
			t.Fatalf("GetCatalog(%q).Locale() = %s, want en-US", locale, c.Locale())
		}
	}
}

func TestFormatTemplatesMetadata(t *testing.T) {
	c := GetCatalog("en-US")

	got := c.Format(CodeChallengeInvalidStatusTransition, map[string]string{
		"FromStatus": "ended",
		"ToStatus":   "active",
	})
	want := "Cannot transition challenge from ended to active"
	if got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
}

func TestFormatWithoutMetadata(t *testing.T) {
	c := GetCatalog("en-US")
	if got := c.Format(CodeDuelSelfChallenge, nil); got != "You cannot challenge yourself to a duel" {
		t.Fatalf("Format = %q", got)
	}
}

func TestFormatUnknownCode(t *testing.T) {
	c := GetCatalog("en-US")
	if got := c.Format("NO_SUCH_CODE", nil); got != "An unexpected error occurred" {
		t.Fatalf("Format = %q", got)
	}
}
