// Package isbn normalizes, validates and extracts ISBN-10 and ISBN-13 codes.
package isbn

import (
	"regexp"
	"strings"
)

// candidatePattern matches digit runs that may contain hyphens or spaces,
// optionally ending in X, long enough to hold an ISBN.
var candidatePattern = regexp.MustCompile(`(?i)(?:97[89][\s-]?)?(?:\d[\s-]?){9}[\dX]`)

// Normalize strips separators and an "ISBN" prefix and uppercases a trailing x.
// It does not validate the checksum.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	for _, prefix := range []string{"ISBN-13:", "ISBN-10:", "ISBN13:", "ISBN10:", "ISBN:", "ISBN"} {
		if strings.HasPrefix(upper, prefix) {
			s = s[len(prefix):]
			break
		}
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		case r == '-' || r == ' ' || r == '\t':
		default:
			return ""
		}
	}
	return b.String()
}

// Valid reports whether s is a normalized ISBN-10 or ISBN-13 with a correct check digit.
func Valid(s string) bool {
	switch len(s) {
	case 10:
		return valid10(s)
	case 13:
		return valid13(s)
	}
	return false
}

func valid10(s string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		c := s[i]
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c == 'X' && i == 9:
			v = 10
		default:
			return false
		}
		sum += v * (10 - i)
	}
	return sum%11 == 0
}

func valid13(s string) bool {
	sum := 0
	for i := 0; i < 13; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		v := int(c - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return sum%10 == 0
}

// To13 converts a valid ISBN-10 to ISBN-13. ISBN-13 input is returned as is;
// anything invalid yields "".
func To13(s string) string {
	if !Valid(s) {
		return ""
	}
	if len(s) == 13 {
		return s
	}
	body := "978" + s[:9]
	sum := 0
	for i := 0; i < 12; i++ {
		v := int(body[i] - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	check := (10 - sum%10) % 10
	return body + string(rune('0'+check))
}

// Canonical normalizes and validates s, returning the ISBN-13 form or "".
func Canonical(s string) string {
	return To13(Normalize(s))
}

// Find extracts valid ISBNs from free text such as OCR output, in order of
// appearance, as ISBN-13 without duplicates.
func Find(text string) []string {
	var found []string
	seen := make(map[string]bool)
	for _, match := range candidatePattern.FindAllString(text, -1) {
		code := Canonical(match)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		found = append(found, code)
	}
	return found
}
