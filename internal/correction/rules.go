package correction

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Rules is a compiled set of corrections applied in one pass, so a
// replacement is never rewritten by another rule.
type Rules struct {
	re           *regexp.Regexp
	replacements map[string]string
}

// Compile builds rules matching each incorrect phrase as a whole word,
// ignoring case. Longer phrases are tried first so a phrase wins over any
// single word it contains.
func Compile(corrections []Correction) *Rules {
	replacements := make(map[string]string, len(corrections))
	phrases := make([]string, 0, len(corrections))
	for _, c := range corrections {
		phrase := strings.TrimSpace(c.Incorrect)
		key := normalize(phrase)
		if key == "" {
			continue
		}
		if _, dup := replacements[key]; !dup {
			phrases = append(phrases, phrase)
		}
		replacements[key] = c.Correct
	}
	if len(phrases) == 0 {
		return &Rules{}
	}

	sort.SliceStable(phrases, func(i, j int) bool {
		return len(phrases[i]) > len(phrases[j])
	})
	alternatives := make([]string, len(phrases))
	for i, p := range phrases {
		alternatives[i] = wordPattern(p)
	}

	return &Rules{
		re:           regexp.MustCompile("(?i)(?:" + strings.Join(alternatives, "|") + ")"),
		replacements: replacements,
	}
}

func wordPattern(phrase string) string {
	pattern := regexp.QuoteMeta(phrase)
	// \b only makes sense next to a word character
	if first, _ := utf8.DecodeRuneInString(phrase); isWord(first) {
		pattern = `\b` + pattern
	}
	if last, _ := utf8.DecodeLastRuneInString(phrase); isWord(last) {
		pattern += `\b`
	}
	return pattern
}

func isWord(r rune) bool {
	return r == '_' || r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func (r *Rules) Len() int {
	return len(r.replacements)
}

func (r *Rules) Apply(text string) string {
	if r.re == nil {
		return text
	}
	return r.re.ReplaceAllStringFunc(text, func(match string) string {
		if repl, ok := r.replacements[strings.ToLower(match)]; ok {
			return repl
		}
		return match
	})
}
