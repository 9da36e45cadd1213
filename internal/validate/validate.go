// Package validate checks and sanitizes user input before it reaches the
// model pipeline.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	// MinIdeaLen and MaxIdeaLen bound the idea text after trimming.
	MinIdeaLen = 10
	MaxIdeaLen = 1000
)

var (
	// ErrIdeaTooShort and friends let callers branch on the failure kind.
	ErrIdeaTooShort  = errors.New("idea is too short")
	ErrIdeaTooLong   = errors.New("idea is too long")
	ErrIdeaNoLetters = errors.New("idea contains no letters")
	ErrIdeaUnsafe    = errors.New("idea contains disallowed content")
)

var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)data\s*:\s*text/html`),
}

// Idea validates a startup idea.
func Idea(s string) error {
	s = strings.TrimSpace(s)
	if len(s) < MinIdeaLen {
		return fmt.Errorf("%w: need at least %d characters", ErrIdeaTooShort, MinIdeaLen)
	}
	if len(s) > MaxIdeaLen {
		return fmt.Errorf("%w: limit is %d characters", ErrIdeaTooLong, MaxIdeaLen)
	}
	if !containsLetter(s) {
		return ErrIdeaNoLetters
	}
	for _, re := range dangerousPatterns {
		if re.MatchString(s) {
			return ErrIdeaUnsafe
		}
	}
	return nil
}

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// SanitizeIdea strips markup and collapses whitespace runs.
func SanitizeIdea(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// APIKey checks a Gemini API key for obvious problems. A missing "AIza"
// prefix is reported as a warning string rather than an error since other
// key formats exist.
func APIKey(s string) (warning string, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("API key is empty")
	}
	if len(s) < 20 {
		return "", errors.New("API key is too short to be valid")
	}
	if !strings.HasPrefix(s, "AIza") {
		return "API key does not look like a Google AI key (expected AIza prefix)", nil
	}
	return "", nil
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
