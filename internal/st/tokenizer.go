package st

import "strings"

type tokenizerState int

const (
	stateNeutral tokenizerState = iota
	stateInField
	stateInQuotedField
	stateQuoteInQuotedField
	stateEndOfRow
)

// Tokenizer splits one physical CSV line into fields. Quoted fields may
// contain delimiters and doubled quotes but not line breaks. A Tokenizer
// reuses its buffers between calls and is not safe for concurrent use.
type Tokenizer struct {
	Delimiter rune
	Quote     rune

	state  tokenizerState
	fields []string
	field  strings.Builder
}

// NewTokenizer returns a comma-delimited, double-quote qualified tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{Delimiter: ',', Quote: '"'}
}

// Split tokenizes line, which may still carry its "\n" or "\r\n" terminator.
// It returns nil when the line produced no fields.
func (t *Tokenizer) Split(line string) []string {
	t.state = stateNeutral
	t.fields = nil
	t.field.Reset()

	for _, c := range line {
		if t.state == stateEndOfRow {
			break
		}
		switch t.state {
		case stateNeutral:
			switch c {
			case t.Quote:
				t.state = stateInQuotedField
			case t.Delimiter:
				t.fields = append(t.fields, "")
			case '\n':
				t.endField()
				t.state = stateEndOfRow
			case '\r':
			default:
				t.field.WriteRune(c)
				t.state = stateInField
			}
		case stateInField:
			switch c {
			case t.Delimiter:
				t.endField()
			case '\n':
				t.endField()
				t.state = stateEndOfRow
			case '\r':
			default:
				t.field.WriteRune(c)
			}
		case stateInQuotedField:
			if c == t.Quote {
				t.state = stateQuoteInQuotedField
			} else {
				t.field.WriteRune(c)
			}
		case stateQuoteInQuotedField:
			switch c {
			case t.Quote:
				t.field.WriteRune(c)
				t.state = stateInQuotedField
			case t.Delimiter:
				t.endField()
			case '\n':
				t.endField()
				t.state = stateEndOfRow
			case '\r':
			default:
				// Text after the closing quote joins the same field.
				t.field.WriteRune(c)
				t.state = stateInField
			}
		}
	}

	if t.field.Len() > 0 {
		t.endField()
	}
	t.state = stateNeutral

	return t.fields
}

func (t *Tokenizer) endField() {
	t.fields = append(t.fields, t.field.String())
	t.field.Reset()
	t.state = stateNeutral
}

// Quote renders field so that Split recovers it exactly: fields containing
// the delimiter, the quote or a carriage return are wrapped and inner quotes
// doubled.
func Quote(field string) string {
	if !strings.ContainsAny(field, ",\"\r") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
