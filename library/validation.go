package library

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digits       = regexp.MustCompile(`^\d+$`)
	isbnNoise    = strings.NewReplacer("-", "", " ", "")
)

// ValidEmail does a shallow shape check: something@something.tld without whitespace.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidISBN accepts ISBN-10 and ISBN-13 written with or without hyphens and spaces.
// Check digits are not verified.
func ValidISBN(isbn string) bool {
	clean := isbnNoise.Replace(isbn)
	if len(clean) != 10 && len(clean) != 13 {
		return false
	}
	return digits.MatchString(clean)
}

// problems collects input errors so all of them are reported at once.
type problems []string

func (p *problems) require(ok bool, msg string) {
	if !ok {
		*p = append(*p, msg)
	}
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return newError(CodeInvalidInput, "%s", strings.Join(p, "; "))
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
