package procfs

import "testing"

func TestParseMapLine(t *testing.T) {
	cases := []struct {
		line string
		want MapEntry
	}{
		{
			"00400000-00452000 r-xp 00000000 08:02 173521 /usr/bin/demo",
			MapEntry{Start: 0x400000, End: 0x452000, Perms: "r-xp", Path: "/usr/bin/demo"},
		},
		{
			"7f3a8c000000-7f3a8c021000 rw-p 00000000 00:00 0",
			MapEntry{Start: 0x7f3a8c000000, End: 0x7f3a8c021000, Perms: "rw-p"},
		},
		{
			"5594e0000000-5594e0021000 rw-p 00000000 00:00 0 [heap]",
			MapEntry{Start: 0x5594e0000000, End: 0x5594e0021000, Perms: "rw-p", Path: "[heap]"},
		},
		{
			// Paths with spaces survive, including the deleted marker.
			"7f0000000000-7f0000001000 r--p 00000000 08:02 99 /tmp/my lib.so (deleted)",
			MapEntry{Start: 0x7f0000000000, End: 0x7f0000001000, Perms: "r--p", Path: "/tmp/my lib.so (deleted)"},
		},
	}
	for _, c := range cases {
		got, err := parseMapLine(c.line)
		if err != nil {
			t.Fatalf("parseMapLine(%q): %v", c.line, err)
		}
		if got != c.want {
			t.Fatalf("parseMapLine(%q) = %+v, want %+v", c.line, got, c.want)
		}
	}
}

func TestParseMapLineMalformed(t *testing.T) {
	for _, line := range []string{
		"",
		"not-a-range rw-p 00000000 00:00 0",
		"00400000 r-xp 00000000 08:02 1",
	} {
		if _, err := parseMapLine(line); err == nil {
			t.Fatalf("expected error for %q", line)
		}
	}
}
