package wizard

import (
	"fmt"
	"strings"

	"github.com/alkime/saywhat/pkg/collections"
	"github.com/sahilm/fuzzy"
)

// Language is a supported translation target.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

func (l Language) String() string {
	return l.Flag + " " + l.Name
}

var languages = []Language{
	{"es", "Spanish", "🇪🇸"},
	{"fr", "French", "🇫🇷"},
	{"de", "German", "🇩🇪"},
	{"ja", "Japanese", "🇯🇵"},
	{"zh", "Chinese", "🇨🇳"},
	{"ar", "Arabic", "🇸🇦"},
	{"pt", "Portuguese", "🇵🇹"},
	{"ru", "Russian", "🇷🇺"},
	{"it", "Italian", "🇮🇹"},
	{"ko", "Korean", "🇰🇷"},
}

// Languages returns the allowed target languages in display order.
func Languages() []Language {
	return append([]Language(nil), languages...)
}

// LookupLanguage finds a language by its code.
func LookupLanguage(code string) (Language, bool) {
	return collections.Find(languages, func(l Language) bool { return l.Code == code })
}

type languageSource []Language

func (s languageSource) String(i int) string { return s[i].Code + " " + s[i].Name }
func (s languageSource) Len() int            { return len(s) }

// MatchLanguages fuzzy-matches query against language codes and names, best
// match first. An empty query returns every language.
func MatchLanguages(query string) []Language {
	query = strings.TrimSpace(query)
	if query == "" {
		return Languages()
	}

	matches := fuzzy.FindFrom(query, languageSource(languages))

	return collections.Apply(matches, func(m fuzzy.Match) Language {
		return languages[m.Index]
	})
}

// Tone is the register used for translation.
type Tone string

const (
	ToneFormal         Tone = "formal"
	ToneInformal       Tone = "informal"
	ToneTechnical      Tone = "technical"
	ToneConversational Tone = "conversational"
)

// DefaultTone is the tone of a fresh wizard.
const DefaultTone = ToneFormal

// Tones returns every tone in display order.
func Tones() []Tone {
	return []Tone{ToneFormal, ToneInformal, ToneTechnical, ToneConversational}
}

// ParseTone validates s as a Tone.
func ParseTone(s string) (Tone, error) {
	for _, t := range Tones() {
		if string(t) == s {
			return t, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownTone, s)
}

// Title returns the tone capitalized for display.
func (t Tone) Title() string {
	if t == "" {
		return ""
	}

	return strings.ToUpper(string(t[:1])) + string(t[1:])
}
