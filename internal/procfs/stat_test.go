package procfs

import "testing"

func TestParseStat(t *testing.T) {
	st, err := parseStat([]byte(testStatLine))
	if err != nil {
		t.Fatalf("parseStat: %v", err)
	}
	if st.comm != "demo server" {
		t.Fatalf("comm = %q", st.comm)
	}
	if st.state != 'S' {
		t.Fatalf("state = %c", st.state)
	}
	if st.utime != 250 || st.stime != 150 {
		t.Fatalf("utime = %d stime = %d", st.utime, st.stime)
	}
}

func TestParseStatCommWithParens(t *testing.T) {
	// A comm like "a) R (b" must not confuse field splitting.
	line := "99 (a) R (b) S 1 99 99 0 -1 0 0 0 0 0 7 9 0 0 20 0 1 0 1 0 0 0"
	st, err := parseStat([]byte(line))
	if err != nil {
		t.Fatalf("parseStat: %v", err)
	}
	if st.comm != "a) R (b" {
		t.Fatalf("comm = %q", st.comm)
	}
	if st.state != 'S' || st.utime != 7 || st.stime != 9 {
		t.Fatalf("parsed = %+v", st)
	}
}

func TestParseStatMalformed(t *testing.T) {
	for _, line := range []string{
		"",
		"123 no-parens R 1 2 3",
		"123 (short) R 1 2",
		"123 (x)",
		"123 (x) ",
	} {
		if _, err := parseStat([]byte(line)); err == nil {
			t.Fatalf("expected error for %q", line)
		}
	}
}

func TestStateFromLetter(t *testing.T) {
	cases := []struct {
		letter byte
		want   State
	}{
		{'R', StateRunning},
		{'S', StateSleeping},
		{'D', StateSleeping},
		{'I', StateSleeping},
		{'T', StateStopped},
		{'t', StateStopped},
		{'Z', StateZombie},
		{'X', StateUnknown},
		{'?', StateUnknown},
	}
	for _, c := range cases {
		if got := stateFromLetter(c.letter); got != c.want {
			t.Fatalf("stateFromLetter(%c) = %q, want %q", c.letter, got, c.want)
		}
	}
}
