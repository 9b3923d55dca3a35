package views

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateCountsRunes(t *testing.T) {
	long := strings.Repeat("é", maxMetadataLen+100)

	got := truncate(long, maxMetadataLen)
	if n := utf8.RuneCountInString(got); n != maxMetadataLen {
		t.Errorf("rune count = %d, want %d", n, maxMetadataLen)
	}
	if !utf8.ValidString(got) {
		t.Error("truncated value is not valid UTF-8")
	}
}

func TestTruncateLeavesShortValues(t *testing.T) {
	short := strings.Repeat("a", maxMetadataLen)
	if got := truncate(short, maxMetadataLen); got != short {
		t.Errorf("truncate() = %q, want input unchanged", got)
	}
	if got := truncate("", maxMetadataLen); got != "" {
		t.Errorf("truncate(\"\") = %q, want empty", got)
	}
}

func TestMetadataTruncated(t *testing.T) {
	m := Metadata{
		IPAddress: "203.0.113.9",
		UserAgent: strings.Repeat("ü", maxMetadataLen+1),
		Referrer:  "https://example.com/search?q=" + strings.Repeat("x", 600),
	}

	got := m.truncated()
	if got.IPAddress != m.IPAddress {
		t.Errorf("IPAddress = %q, want unchanged", got.IPAddress)
	}
	if n := utf8.RuneCountInString(got.UserAgent); n != maxMetadataLen {
		t.Errorf("UserAgent rune count = %d, want %d", n, maxMetadataLen)
	}
	if !utf8.ValidString(got.UserAgent) {
		t.Error("UserAgent is not valid UTF-8 after truncation")
	}
	if n := utf8.RuneCountInString(got.Referrer); n != maxMetadataLen {
		t.Errorf("Referrer rune count = %d, want %d", n, maxMetadataLen)
	}
}
