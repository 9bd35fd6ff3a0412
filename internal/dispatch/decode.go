package dispatch

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncoding is the legacy code page command output is assumed to use.
const DefaultEncoding = "gbk"

// OutputDecoder turns raw command output into UTF-8 text.
type OutputDecoder struct {
	name string
	enc  encoding.Encoding
}

// NewOutputDecoder resolves an encoding by its WHATWG name or alias
// ("gbk", "shift_jis", "windows-1252", "utf-8", ...). An empty name selects
// DefaultEncoding.
func NewOutputDecoder(name string) (*OutputDecoder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultEncoding
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("output encoding %q: %w", name, err)
	}
	return &OutputDecoder{name: name, enc: enc}, nil
}

func (d *OutputDecoder) Name() string { return d.name }

// Decode converts b to trimmed UTF-8. Undecodable input falls back to the raw
// bytes with invalid sequences replaced.
func (d *OutputDecoder) Decode(b []byte) string {
	if d == nil || d.enc == nil || d.enc == unicode.UTF8 {
		return strings.TrimSpace(strings.ToValidUTF8(string(b), "�"))
	}
	out, err := d.enc.NewDecoder().Bytes(b)
	if err != nil {
		return strings.TrimSpace(strings.ToValidUTF8(string(b), "�"))
	}
	return strings.TrimSpace(string(out))
}
