// Package clean normalizes raw spreadsheet cell values into canonical
// strings before validation and import.
package clean

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/kociii/reData/internal/model"
)

var multiSpace = regexp.MustCompile(`\s+`)

// Clean applies the per-type normalization rules. It is idempotent:
// Clean(Clean(v, t), t) == Clean(v, t) for every type.
func Clean(value string, fieldType model.FieldType) string {
	// Control characters become spaces first so they collapse with the
	// surrounding whitespace below.
	v := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, value)

	switch fieldType {
	case model.FieldTypePhone:
		v = keepRunes(v, func(r rune) bool {
			return unicode.IsDigit(r) || r == '+'
		})
	case model.FieldTypeEmail:
		v = keepRunes(v, func(r rune) bool {
			return !unicode.IsSpace(r)
		})
		v = strings.ToLower(v)
	case model.FieldTypeNumber, model.FieldTypeIDCard:
		v = keepRunes(v, func(r rune) bool {
			return unicode.IsDigit(r) || unicode.IsLetter(r)
		})
	case model.FieldTypeDate:
		v = keepRunes(v, func(r rune) bool {
			return unicode.IsDigit(r) || strings.ContainsRune("-/.:", r)
		})
	case model.FieldTypeCompany:
		v = multiSpace.ReplaceAllString(v, " ")
		if digitsAndSpaceOnly(strings.TrimSpace(v)) {
			// A company cell holding only digits, spaced or not, is a
			// stray serial number, not a name.
			v = ""
		}
	default:
		v = multiSpace.ReplaceAllString(v, " ")
	}

	return strings.TrimSpace(v)
}

// Validate checks a cleaned value against an optional regular
// expression rule. Empty values always pass (required-ness is a
// separate check), and a missing or malformed rule never rejects.
func Validate(value, rule string) bool {
	if value == "" || rule == "" {
		return true
	}
	re, err := regexp.Compile(rule)
	if err != nil {
		return true
	}
	return re.MatchString(value)
}

func keepRunes(s string, keep func(rune) bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if keep(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func digitsAndSpaceOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
