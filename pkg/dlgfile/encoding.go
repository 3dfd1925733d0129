package dlgfile

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
)

// Encoding names used across the application.
const (
	// DefaultEncoding is what new documents are saved as.
	DefaultEncoding = "utf-8-sig"

	// JSONEncoding is recorded on a session after a JSON import, which
	// severs any tie to the original file's byte encoding.
	JSONEncoding = "utf-8"
)

// readEncodings are tried in order when sniffing a .dlg file. latin-1 maps
// every byte, so the list always terminates with a successful decode.
var readEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"utf-8-sig", unicode.UTF8BOM},
	{"cp1251", charmap.Windows1251},
	{"utf-16-le", unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)},
	{"utf-16-be", unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)},
	{"latin-1", charmap.ISO8859_1},
}

// lookupEncoding resolves a retained encoding name for writing.
func lookupEncoding(name string) (encoding.Encoding, bool) {
	if name == JSONEncoding {
		return unicode.UTF8, true
	}
	for _, e := range readEncodings {
		if e.name == name {
			return e.enc, true
		}
	}
	return nil, false
}

// decodeAuto decodes raw file bytes with the first encoding that produces a
// clean result, returning the text and the winning encoding's name. A decode
// is clean when it neither errors nor emits U+FFFD replacement runes; that
// is how undecodable cp1251 bytes and odd-length utf-16 input surface from
// the transform layer.
func decodeAuto(data []byte) (string, string, error) {
	for _, e := range readEncodings {
		decoded, err := e.enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		if bytes.ContainsRune(decoded, utf8.RuneError) {
			continue
		}
		return string(decoded), e.name, nil
	}
	return "", "", apperrors.New(apperrors.ErrCodeDecode, "no encoding produced a clean decode")
}

// encodeAs transcodes text into the named encoding. utf-8-sig output gains
// a byte order mark, matching what the sniffing side accepts.
func encodeAs(text, name string) ([]byte, error) {
	enc, ok := lookupEncoding(name)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeUnsupported, "unsupported encoding %q", name)
	}
	data, err := enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeUnsupported, err,
			"text not representable in %s", name)
	}
	return data, nil
}
