package util

import "strings"

// SanitizeText cleans text recovered from PDF, DOCX and OCR before it is
// embedded in the generation prompt. NUL bytes and stray control characters
// show up in some PDF text layers and OCR output.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\x00", "")

	r := make([]rune, 0, len(s))
	for _, ch := range s {
		if ch == '\n' || ch == '\r' || ch == '\t' {
			r = append(r, ch)
			continue
		}
		if ch < 0x20 || ch == 0x7f {
			continue
		}
		r = append(r, ch)
	}
	return strings.TrimSpace(string(r))
}

// DecodePlainText returns an uploaded text file as written, minus a leading
// UTF-8 BOM and with CRLF line endings normalized to LF.
func DecodePlainText(b []byte) string {
	s := strings.TrimPrefix(string(b), "\ufeff")
	return strings.ReplaceAll(s, "\r\n", "\n")
}
