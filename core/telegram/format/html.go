// Package format renders Telegram HTML message fragments.
package format

import (
	"html"
	"strings"
	"unicode/utf8"
)

// MaxMessageLen is a safe budget below Telegram's 4096 character limit.
const MaxMessageLen = 3500

// HTML escapes s for parse mode HTML.
func HTML(s string) string {
	return html.EscapeString(s)
}

// Code wraps escaped s in a <code> tag.
func Code(s string) string {
	return "<code>" + HTML(s) + "</code>"
}

// Bold wraps escaped s in a <b> tag.
func Bold(s string) string {
	return "<b>" + HTML(s) + "</b>"
}

// Chunk joins lines with newlines into messages of at most limit runes,
// breaking only between lines. A single longer line is split by runes.
func Chunk(lines []string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLen
	}
	var (
		out  []string
		cur  strings.Builder
		size int
	)
	flush := func() {
		if size > 0 {
			out = append(out, cur.String())
			cur.Reset()
			size = 0
		}
	}
	for _, line := range lines {
		n := utf8.RuneCountInString(line)
		for n > limit {
			flush()
			r := []rune(line)
			out = append(out, string(r[:limit]))
			line = string(r[limit:])
			n -= limit
		}
		sep := 0
		if size > 0 {
			sep = 1
		}
		if size+sep+n > limit {
			flush()
			sep = 0
		}
		if sep == 1 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
		size += sep + n
	}
	flush()
	return out
}
