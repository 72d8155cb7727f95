package format

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	whitespaceRun = regexp.MustCompile(`\s\s+`)
	sentenceStart = regexp.MustCompile(`[.!?]\s\p{Ll}`)
)

// Formatter applies a deterministic cleanup pass over raw transcripts:
// filler removal, whitespace collapse, sentence capitalization, terminal
// punctuation. It never fails; empty input yields empty output.
type Formatter struct {
	fillers []*regexp.Regexp
}

func New(fillerWords []string) *Formatter {
	f := &Formatter{}
	for _, w := range fillerWords {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		// Whole-word match only: "like" must not strip inside "dislike".
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
		if err != nil {
			continue
		}
		f.fillers = append(f.fillers, re)
	}
	return f
}

func (f *Formatter) Format(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	text := raw
	for _, re := range f.fillers {
		text = re.ReplaceAllString(text, " ")
	}

	text = whitespaceRun.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	text = capitalizeFirst(text)
	text = sentenceStart.ReplaceAllStringFunc(text, capitalizeLast)

	if !strings.ContainsAny(text[len(text)-1:], ".!?") {
		text += "."
	}
	return text
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || !unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// capitalizeLast uppercases the trailing rune of a sentence-start match
// like ". a".
func capitalizeLast(match string) string {
	r, size := utf8.DecodeLastRuneInString(match)
	if r == utf8.RuneError {
		return match
	}
	return match[:len(match)-size] + string(unicode.ToUpper(r))
}
