package ttplayer

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEncodeQueryTerm(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Björk", "62006A00F60072006B00"},
		{"Hello, World!", "680065006C006C006F0077006F0072006C006400"},
		{"周杰伦", "68547067264F"},
		{"A B", "61006200"},
		{"AC/DC", "6100630064006300"},
		{"", ""},
		{" ,.! ", ""},
	}
	for _, tt := range tests {
		if got := EncodeQueryTerm(tt.in); got != tt.want {
			t.Errorf("EncodeQueryTerm(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncodeQueryTermShape(t *testing.T) {
	in := "Björk"
	got := EncodeQueryTerm(in)
	if len(got) != 4*utf8.RuneCountInString(in) {
		t.Errorf("len = %d, want %d", len(got), 4*utf8.RuneCountInString(in))
	}
	if got != strings.ToUpper(got) {
		t.Errorf("expected uppercase hex, got %q", got)
	}
	if again := EncodeQueryTerm(in); again != got {
		t.Errorf("not deterministic: %q vs %q", got, again)
	}
}

func TestVerificationCode(t *testing.T) {
	tests := []struct {
		artist, title string
		id            int32
		want          string
	}{
		{"abc", "def", 42, "268104669"},
		{"", "", 0, "0"},
		{"Björk", "Jóga", 123456, "1586532346"},
		{"周杰伦", "晴天", 2147483647, "199023338"},
		{"a", "b", -1, "-3113460"},
		{"Artist", "Title", 16777216, "-725026911"},
	}
	for _, tt := range tests {
		if got := VerificationCode(tt.artist, tt.title, tt.id); got != tt.want {
			t.Errorf("VerificationCode(%q, %q, %d) = %s, want %s", tt.artist, tt.title, tt.id, got, tt.want)
		}
	}
}

func TestVerificationCodeInvalidInput(t *testing.T) {
	if got := VerificationCode("bad\xff", "title", 1); got != "" {
		t.Errorf("expected empty code for invalid UTF-8, got %q", got)
	}
}
