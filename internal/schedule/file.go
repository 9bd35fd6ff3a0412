package schedule

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// ErrNotUTF8 is returned when a schedule file is not valid UTF-8.
var ErrNotUTF8 = errors.New("schedule file is not valid UTF-8")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadFile reads path and parses every line. Lines that do not form an entry
// are dropped; field specs are not validated here (see Entry.IsDue).
func ReadFile(path string) ([]Entry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse parses a whole schedule document.
func Parse(b []byte) ([]Entry, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if !utf8.Valid(b) {
		return nil, ErrNotUTF8
	}
	lines := strings.Split(string(b), "\n")
	out := make([]Entry, 0, len(lines))
	for i, line := range lines {
		e, ok := ParseLine(line)
		if !ok {
			continue
		}
		e.Line = i + 1
		out = append(out, e)
	}
	return out, nil
}

// String renders e back into schedule-file form (wildcards stay expanded).
func (e Entry) String() string {
	return fmt.Sprintf("%s %s", strings.Join(e.Fields[:], " "), e.Command)
}
