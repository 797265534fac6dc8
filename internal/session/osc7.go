package session

import (
	"bytes"
	"net/url"
	"strings"
)

// OSC 7 is the escape-sequence convention shells use to report their working
// directory: ESC ] 7 ; file://host/path terminated by BEL or ST. The marker
// can arrive split across arbitrary chunk boundaries, so the scanner carries
// an unterminated candidate between scans.

var osc7Prefix = []byte("\x1b]7;")

const (
	osc7Bel = 0x07
	// A pathological stream could open an OSC 7 and never terminate it;
	// cap the carry so it cannot grow without bound.
	osc7MaxCarry = 4096
)

// cwdScanner incrementally extracts OSC 7 working-directory reports from an
// output stream. The zero value is ready to use.
type cwdScanner struct {
	carry []byte
}

// scan consumes one output chunk and returns the decoded paths of every
// complete OSC 7 sequence it contains, in order. Work is linear in the chunk
// size.
func (s *cwdScanner) scan(chunk []byte) []string {
	data := chunk
	if len(s.carry) > 0 {
		data = append(s.carry, chunk...)
		s.carry = nil
	}

	var dirs []string
	for {
		start := bytes.Index(data, osc7Prefix)
		if start < 0 {
			s.carryPartialPrefix(data)
			return dirs
		}

		body := data[start+len(osc7Prefix):]
		end, termLen, terminated := osc7Terminator(body)
		if end < 0 {
			// Unterminated candidate: keep it for the next chunk.
			if tail := data[start:]; len(tail) <= osc7MaxCarry {
				s.carry = append([]byte(nil), tail...)
			}
			return dirs
		}

		if terminated {
			if dir, ok := decodeOSC7(string(body[:end])); ok {
				dirs = append(dirs, dir)
			}
			data = body[end+termLen:]
			continue
		}
		// Aborted sequence: resume at the aborting byte, which may itself
		// open a new sequence.
		data = body[end:]
	}
}

// carryPartialPrefix retains a chunk tail that could be the beginning of the
// OSC 7 prefix (e.g. a bare ESC or "ESC ]" at the chunk edge).
func (s *cwdScanner) carryPartialPrefix(data []byte) {
	maxTail := len(osc7Prefix) - 1
	if len(data) < maxTail {
		maxTail = len(data)
	}
	for n := maxTail; n > 0; n-- {
		tail := data[len(data)-n:]
		if bytes.Equal(tail, osc7Prefix[:n]) {
			s.carry = append([]byte(nil), tail...)
			return
		}
	}
}

// osc7Terminator finds the sequence terminator in body: BEL or ST (ESC \).
// Returns (-1, 0, false) when the sequence is still incomplete, and a
// non-negative end with terminated=false when a stray ESC aborted it.
func osc7Terminator(body []byte) (end, termLen int, terminated bool) {
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case osc7Bel:
			return i, 1, true
		case 0x1b:
			if i+1 >= len(body) {
				// ESC at the chunk edge could be half an ST.
				return -1, 0, false
			}
			if body[i+1] == '\\' {
				return i, 2, true
			}
			return i, 0, false
		}
	}
	return -1, 0, false
}

// decodeOSC7 extracts and percent-decodes the path from an OSC 7 payload of
// the form [file://host]path.
func decodeOSC7(payload string) (string, bool) {
	path := payload
	if rest, ok := strings.CutPrefix(payload, "file://"); ok {
		slash := strings.IndexByte(rest, '/')
		if slash < 0 {
			return "", false
		}
		path = rest[slash:]
	}
	if path == "" {
		return "", false
	}

	decoded, err := url.PathUnescape(path)
	if err != nil {
		return "", false
	}
	return decoded, true
}
