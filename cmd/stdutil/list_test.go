package main

import (
	"testing"
	"unicode/utf8"
)

func TestClip(t *testing.T) {
	cases := []struct {
		s    string
		max  int
		want string
	}{
		{"short", 80, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a longer command line", 10, "a longe..."},
		{"anything", 0, "anything"},
		{"anything", -5, "anything"},
	}
	for _, c := range cases {
		if got := clip(c.s, c.max); got != c.want {
			t.Fatalf("clip(%q, %d) = %q, want %q", c.s, c.max, got, c.want)
		}
	}
}

func TestClipKeepsRunesIntact(t *testing.T) {
	s := "påminnelse — написать отчёт"
	for max := 4; max < len(s); max++ {
		got := clip(s, max)
		if !utf8.ValidString(got) {
			t.Fatalf("clip(%q, %d) = %q is not valid UTF-8", s, max, got)
		}
	}
}
