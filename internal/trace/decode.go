package trace

import (
	"regexp"
	"strings"
)

// writeCall matches the strace rendering of a write syscall on stdout or
// stderr, with or without the "[pid N]" prefix emitted under -f.
var writeCall = regexp.MustCompile(`^(?:\[pid\s+\d+\]\s+)?write\(([12]), "((?:[^"\\]|\\.)*)"`)

// hexEscape strips the escapes strace uses for non-printable bytes.
var hexEscape = regexp.MustCompile(`\\x[0-9a-fA-F]{2}`)

// metaMarkers are tracer-generated event lines worth surfacing to the
// operator alongside the captured payload.
var metaMarkers = []string{"attached", "detached", "exited", "killed by", "--- SIG"}

// FormatLine converts one raw tracer output line into displayable text.
// Payload of write(1,...)/write(2,...) calls is unescaped; tracer lifecycle
// lines are passed through with a "[tracer]" prefix; everything else is
// dropped.
func FormatLine(raw string) (string, bool) {
	if m := writeCall.FindStringSubmatch(raw); m != nil {
		return unescapePayload(m[2]), true
	}
	for _, marker := range metaMarkers {
		if strings.Contains(raw, marker) {
			return "[tracer] " + strings.TrimSpace(raw), true
		}
	}
	return "", false
}

func unescapePayload(s string) string {
	s = hexEscape.ReplaceAllString(s, "")
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '"', '\\':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
