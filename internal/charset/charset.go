// Package charset converts between the encodings ERP exports arrive in and UTF-8.
//
// Decoding is lossy: byte sequences that are invalid for the selected
// encoding become U+FFFD instead of failing the run.
package charset

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	apperrors "dpt/internal/errors"
)

// Encoding identifies one of the supported character sets.
type Encoding int

const (
	UTF8 Encoding = iota
	GBK
	GB18030
)

// Parse accepts UTF8, UTF-8, GBK and GB18030 in any case.
func Parse(s string) (Encoding, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UTF8", "UTF-8":
		return UTF8, nil
	case "GBK":
		return GBK, nil
	case "GB18030":
		return GB18030, nil
	default:
		return 0, apperrors.NewFromStrError(s, "encoding")
	}
}

func (e Encoding) String() string {
	switch e {
	case UTF8:
		return "UTF8"
	case GBK:
		return "GBK"
	case GB18030:
		return "GB18030"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e Encoding) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Encoding) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

func (e Encoding) encoding() encoding.Encoding {
	switch e {
	case GBK:
		return simplifiedchinese.GBK
	case GB18030:
		return simplifiedchinese.GB18030
	default:
		// UTF8BOM strips a leading byte order mark when decoding.
		return unicode.UTF8BOM
	}
}

// Decoder turns raw lines into UTF-8 text. A Decoder is not safe for
// concurrent use.
type Decoder struct {
	enc Encoding
	dec *encoding.Decoder
}

// NewDecoder returns a lossy decoder for e.
func (e Encoding) NewDecoder() *Decoder {
	return &Decoder{enc: e, dec: e.encoding().NewDecoder()}
}

// Decode converts src to UTF-8.
func (d *Decoder) Decode(src []byte) (string, error) {
	out, err := d.dec.Bytes(src)
	if err != nil {
		return "", apperrors.NewDecodeError(d.enc.String(), err)
	}
	return string(out), nil
}

// NewReader wraps r so that reads yield UTF-8.
func (e Encoding) NewReader(r io.Reader) io.Reader {
	return transform.NewReader(r, e.encoding().NewDecoder())
}

// NewWriter wraps w so that UTF-8 written to it is stored in e. Runes that e
// cannot represent are replaced.
func (e Encoding) NewWriter(w io.Writer) io.WriteCloser {
	if e == UTF8 {
		return transform.NewWriter(w, unicode.UTF8.NewEncoder())
	}
	return transform.NewWriter(w, encoding.ReplaceUnsupported(e.encoding().NewEncoder()))
}

// Encode converts UTF-8 text to e.
func (e Encoding) Encode(s string) ([]byte, error) {
	var enc *encoding.Encoder
	if e == UTF8 {
		enc = unicode.UTF8.NewEncoder()
	} else {
		enc = encoding.ReplaceUnsupported(e.encoding().NewEncoder())
	}
	out, err := enc.Bytes([]byte(s))
	if err != nil {
		return nil, apperrors.NewDecodeError(e.String(), err)
	}
	return out, nil
}
