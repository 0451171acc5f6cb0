package translator

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DetectLanguage returns the most frequent language among texts, or
// language.Und when nothing can be detected.
func DetectLanguage(texts []string) language.Tag {
	if len(texts) == 0 {
		return language.Und
	}

	langMap := make(map[string]int)
	for _, text := range texts {
		info := whatlanggo.Detect(text)
		if !info.IsReliable() {
			continue
		}
		if lang := info.Lang.Iso6391(); lang != "" {
			langMap[lang]++
		}
	}

	// Get top language
	var topLang string
	var topCount int
	for lang, count := range langMap {
		if count > topCount || (count == topCount && lang < topLang) {
			topLang = lang
			topCount = count
		}
	}
	if topLang == "" {
		return language.Und
	}

	return language.All.Make(topLang)
}

// DisplayName returns the English name of a language tag, or the input when
// it is not a valid tag.
func DisplayName(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" || strings.EqualFold(tag, "auto") {
		return ""
	}
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	if name := display.English.Tags().Name(t); name != "" {
		return name
	}
	return tag
}
