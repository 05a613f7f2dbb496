package audio

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxInputRunes is the longest text the speech endpoint accepts.
const MaxInputRunes = 4096

// ValidateText checks that text is speakable: not blank, not too long and
// containing at least one letter.
func ValidateText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("text cannot be empty")
	}

	if n := utf8.RuneCountInString(text); n > MaxInputRunes {
		return fmt.Errorf("text is %d characters long, the limit is %d", n, MaxInputRunes)
	}

	for _, r := range text {
		if unicode.IsLetter(r) {
			return nil
		}
	}
	return fmt.Errorf("text must contain letters")
}
