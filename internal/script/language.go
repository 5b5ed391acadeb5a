package script

import (
	"fmt"
	"regexp"
)

// Language identifies the language of a script.
type Language string

const (
	English Language = "en"
	Hindi   Language = "hi"
)

// Languages lists the supported languages in processing order.
var Languages = []Language{English, Hindi}

// ParseLanguage accepts the short language identifiers used on the wire.
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case English, Hindi:
		return Language(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
	}
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	return l == English || l == Hindi
}

// Code returns the locale code the speech and translation backends expect.
func (l Language) Code() string {
	switch l {
	case Hindi:
		return "hi-IN"
	default:
		return "en-IN"
	}
}

// Terminators of the Latin family are followed by whitespace; the Devanagari
// danda and double danda also end a sentence when text follows directly.
var (
	latinBoundary      = regexp.MustCompile(`[.!?]+\s+`)
	// "एक।दो" splits into two units that pack rejoins with one space.
	devanagariBoundary = regexp.MustCompile(`[.!?]+\s+|[।॥]+\s*`)
	terminatorOnly     = regexp.MustCompile(`^[.!?।॥\s]*$`)
)

func (l Language) boundary() *regexp.Regexp {
	if l == Hindi {
		return devanagariBoundary
	}
	return latinBoundary
}
