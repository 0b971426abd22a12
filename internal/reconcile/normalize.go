package reconcile

import (
	"regexp"
	"strings"
)

// legalFormSuffixes are Italian corporate-form tokens removed as whole words.
var legalFormSuffixes = []string{
	"srl", "s.r.l",
	"srls", "s.r.l.s",
	"spa", "s.p.a",
	"snc", "s.n.c",
	"sas", "s.a.s",
	"sb", "s.b",
	"ss", "s.s",
	"sc", "s.c",
	"scarl", "s.c.a.r.l",
}

var (
	punctuation = strings.NewReplacer(
		".", "",
		",", "",
		";", "",
		":", "",
		"-", "",
		"_", "",
		"/", "",
	)
	whitespaceRun = regexp.MustCompile(`\s+`)
	wordToken     = regexp.MustCompile(`[\p{L}\p{N}]+`)
	suffixWords   = buildSuffixWords(legalFormSuffixes)
)

func buildSuffixWords(suffixes []string) map[string]struct{} {
	words := make(map[string]struct{}, len(suffixes))
	for _, suffix := range suffixes {
		// Punctuation is gone by the time suffixes are matched, so the dotted
		// spellings collapse onto their plain forms.
		words[punctuation.Replace(strings.ToLower(suffix))] = struct{}{}
	}
	return words
}

// Normalize canonicalises a company name for legal-form-insensitive
// comparison: lowercase, punctuation removed, whitespace collapsed and legal
// suffixes stripped. It is idempotent.
func Normalize(name string) string {
	if name == "" {
		return ""
	}
	value := strings.TrimSpace(strings.ToLower(name))
	value = punctuation.Replace(value)
	value = whitespaceRun.ReplaceAllString(value, " ")
	value = wordToken.ReplaceAllStringFunc(value, func(word string) string {
		if _, ok := suffixWords[word]; ok {
			return ""
		}
		return word
	})
	value = whitespaceRun.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// exactKey is the raw comparison key: lowercase and trimmed, nothing else.
func exactKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
