package st

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizer_Split(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"simple", "a,b,c\n", []string{"a", "b", "c"}},
		{"no terminator", "a,b,c", []string{"a", "b", "c"}},
		{"crlf", "a,b\r\n", []string{"a", "b"}},
		{"carriage returns dropped", "a\r,b\r", []string{"a", "b"}},
		{"empty middle field", "a,,b\n", []string{"a", "", "b"}},
		{"leading empty field", ",a\n", []string{"", "a"}},
		{"trailing empty field before newline", "a,\n", []string{"a", ""}},
		{"trailing delimiter without newline", "a,", []string{"a"}},
		{"quoted delimiter", `"a,b",c` + "\n", []string{"a,b", "c"}},
		{"escaped quote", `"say ""hi""",x` + "\n", []string{`say "hi"`, "x"}},
		{"quoted empty", `"",x` + "\n", []string{"", "x"}},
		{"text after closing quote", `"ab"c,d` + "\n", []string{"abc", "d"}},
		{"quoted carriage return kept", "\"a\rb\"\n", []string{"a\rb"}},
		{"unterminated quote flushed", `"abc`, []string{"abc"}},
		{"chinese", "物料编码,门店\n", []string{"物料编码", "门店"}},
		{"empty line", "", nil},
		{"bare newline", "\n", []string{""}},
		{"stops at end of row", "a\nb", []string{"a"}},
	}

	tok := NewTokenizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tok.Split(tt.line))
		})
	}
}

func TestTokenizer_StateResetsBetweenCalls(t *testing.T) {
	tok := NewTokenizer()

	assert.Equal(t, []string{"open"}, tok.Split(`"open`))
	assert.Equal(t, []string{"a", "b"}, tok.Split("a,b\n"))
}

func TestTokenizer_RoundTrip(t *testing.T) {
	rows := [][]string{
		{"plain", "with,comma", `with "quote"`},
		{`""`, `,`, `","`},
		{"", "trailing empty", ""},
		{"carriage\rreturn", "九毛九", "1,234.5"},
	}

	tok := NewTokenizer()
	for _, row := range rows {
		quoted := make([]string, len(row))
		for i, f := range row {
			quoted[i] = Quote(f)
		}
		line := strings.Join(quoted, ",") + "\r\n"
		assert.Equal(t, row, tok.Split(line), "line %q", line)
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "abc", Quote("abc"))
	assert.Equal(t, `"a,b"`, Quote("a,b"))
	assert.Equal(t, `"a""b"`, Quote(`a"b`))
}
