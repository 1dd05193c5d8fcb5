package format

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestHTML(t *testing.T) {
	if got := HTML(`<b>"Tom" & Jerry</b>`); got != "&lt;b&gt;&#34;Tom&#34; &amp; Jerry&lt;/b&gt;" {
		t.Fatalf("HTML = %s", got)
	}
	if got := Code("a<b"); got != "<code>a&lt;b</code>" {
		t.Fatalf("Code = %s", got)
	}
}

func TestChunkRespectsLimitAndLines(t *testing.T) {
	lines := make([]string, 0, 300)
	for i := 0; i < 300; i++ {
		lines = append(lines, strings.Repeat("x", 40))
	}
	chunks := Chunk(lines, 3500)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	total := 0
	for _, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 3500 {
			t.Fatalf("chunk of %d runes exceeds limit", n)
		}
		for _, l := range strings.Split(c, "\n") {
			if len(l) != 40 {
				t.Fatalf("line broken inside: %q", l)
			}
			total++
		}
	}
	if total != 300 {
		t.Fatalf("lines lost: %d", total)
	}
}

func TestChunkLongLine(t *testing.T) {
	chunks := Chunk([]string{"ab", strings.Repeat("я", 7), "cd"}, 3)
	want := []string{"ab", "яяя", "яяя", "я", "cd"}
	if strings.Join(chunks, "|") != strings.Join(want, "|") {
		t.Fatalf("Chunk = %q", chunks)
	}
}

func TestChunkEmpty(t *testing.T) {
	if got := Chunk(nil, 10); len(got) != 0 {
		t.Fatalf("Chunk(nil) = %q", got)
	}
}
