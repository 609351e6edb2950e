package phototag

import (
	"regexp"
	"strings"
)

// maxKeywordWords is the number of meaningful words kept in a keyword tag.
const maxKeywordWords = 2

var (
	connectorRe      = regexp.MustCompile(`\s+(?:with|showing|of|in|focusing|documenting|like)\s+`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
	nonTagCharRe     = regexp.MustCompile(`[^a-z0-9-]`)
	trailingJoinerRe = regexp.MustCompile(`-(?:and|or)$`)
	leadingJoinerRe  = regexp.MustCompile(`^(?:and|or)-`)
)

// keywordStopWords are generic domain nouns that carry no tagging value.
var keywordStopWords = map[string]bool{
	"photography": true,
	"composition": true,
	"lighting":    true,
	"subject":     true,
	"subjects":    true,
}

// ExtractKeyword turns a descriptive zero-shot label into a short kebab-case tag:
//
//	"golden hour lighting with warm sunset tones" → "golden-hour"
//	"street photography in an urban environment"  → "street"
//	"dramatic lighting with high contrast shadows" → "dramatic"
//
// Only the phrase before the first connector word is considered. Generic nouns
// are dropped unless nothing else remains, then at most two words are kept.
func ExtractKeyword(label string) string {
	head := connectorRe.Split(strings.TrimSpace(label), 2)[0]
	words := strings.Fields(head)

	var kept []string
	for _, w := range words {
		if keywordStopWords[strings.ToLower(w)] {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		kept = words
	}
	if len(kept) > maxKeywordWords {
		kept = kept[:maxKeywordWords]
	}

	tag := strings.ToLower(strings.Join(kept, " "))
	tag = whitespaceRe.ReplaceAllString(tag, "-")
	tag = nonTagCharRe.ReplaceAllString(tag, "")
	tag = trailingJoinerRe.ReplaceAllString(tag, "")
	tag = leadingJoinerRe.ReplaceAllString(tag, "")
	return tag
}
