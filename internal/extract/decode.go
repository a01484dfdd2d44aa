package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// DecodeBody converts a response body to a string. Valid UTF-8 is used as
// is; anything else is decoded as Shift_JIS, which older hall sites still
// serve. Bytes that decode to nothing useful are dropped.
func DecodeBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if utf8.Valid(body) {
		return string(body)
	}
	out, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), body)
	if err != nil {
		return strings.ToValidUTF8(string(body), "")
	}
	return strings.ReplaceAll(string(out), string(utf8.RuneError), "")
}
