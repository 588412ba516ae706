package vision

import (
	"strings"
	"unicode"
)

const (
	minDigits = 8
	maxDigits = 14
)

// ParseBarcode pulls a barcode value out of a model reply. The first run of
// 8 to 14 digits wins, which covers EAN-8, UPC-A, EAN-13 and GTIN-14. Replies
// without such a run fall back to the first token, for symbologies that
// encode text.
func ParseBarcode(raw string) (string, error) {
	if run := firstDigitRun(raw); run != "" {
		return run, nil
	}

	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "", ErrNoBarcode
	}
	token := strings.TrimFunc(fields[0], func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	if token == "" || strings.EqualFold(token, "none") {
		return "", ErrNoBarcode
	}
	return token, nil
}

func firstDigitRun(s string) string {
	start := -1
	for i, r := range s + " " {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if n := i - start; n >= minDigits && n <= maxDigits {
				return s[start:i]
			}
			start = -1
		}
	}
	return ""
}
