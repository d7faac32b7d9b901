package models

import (
	"fmt"
	"strings"
)

// Language is one of the supported output languages, written as its
// two-letter uppercase code.
type Language string

const (
	English Language = "EN"
	Hindi   Language = "HI"
	Bengali Language = "BN"
	Marathi Language = "MR"
	Tamil   Language = "TA"

	DefaultLanguage = English
)

var displayNames = map[Language]string{
	English: "English",
	Hindi:   "हिन्दी",
	Bengali: "বাংলা",
	Marathi: "मराठी",
	Tamil:   "தமிழ்",
}

// Languages lists every supported language in presentation order.
func Languages() []Language {
	return []Language{English, Hindi, Bengali, Marathi, Tamil}
}

// ParseLanguage accepts a code in any case. An empty string yields the default.
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultLanguage, nil
	}
	lang := Language(strings.ToUpper(s))
	if !lang.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, s)
	}
	return lang, nil
}

func (l Language) Valid() bool {
	_, ok := displayNames[l]
	return ok
}

// Lower is the variant the chat call expects.
func (l Language) Lower() string {
	return strings.ToLower(string(l))
}

func (l Language) DisplayName() string {
	return displayNames[l]
}

// EnglishName is used inside prompts.
func (l Language) EnglishName() string {
	switch l {
	case Hindi:
		return "Hindi"
	case Bengali:
		return "Bengali"
	case Marathi:
		return "Marathi"
	case Tamil:
		return "Tamil"
	default:
		return "English"
	}
}

// SpeechCode is the BCP-47 tag handed to speech synthesis.
func (l Language) SpeechCode() string {
	switch l {
	case Hindi:
		return "hi-IN"
	case Bengali:
		return "bn-IN"
	case Marathi:
		return "mr-IN"
	case Tamil:
		return "ta-IN"
	default:
		return "en-IN"
	}
}

func (l *Language) UnmarshalText(text []byte) error {
	parsed, err := ParseLanguage(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
