// Package keywords is the single source of the conflict vocabulary shared by
// the normalizer pre-filter and the extraction prompt, so the heuristic gate
// and the model policy cannot drift apart.
package keywords

import "strings"

// Version identifies the vocabulary revision recorded with prompts.
const Version = "2025-08"

var conflictTerms = []string{
	"war", "military", "conflict", "attack", "missile", "casualty",
	"casualties", "airstrike", "air strike", "bombing", "shelling",
	"artillery", "drone", "invasion", "offensive", "ceasefire", "troops",
	"frontline", "sanctions", "cyberattack", "humanitarian",
}

var regionTerms = []string{
	"ukraine", "russia", "gaza", "israel", "lebanon", "syria", "iran",
	"yemen", "sudan", "donetsk", "kharkiv", "kherson", "crimea", "west bank",
	"taiwan", "north korea",
}

// Matches reports whether the text contains at least one conflict or region
// term. Matching is case-insensitive substring containment, a cheap gate and
// not the authoritative classification.
func Matches(text string) bool {
	haystack := strings.ToLower(text)
	for _, term := range conflictTerms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	for _, term := range regionTerms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

// PromptVocabulary renders the term lists for inclusion in the extraction
// prompt, keeping the model policy aligned with the pre-filter.
func PromptVocabulary() string {
	return "conflict terms: " + strings.Join(conflictTerms, ", ") +
		"; regions of interest: " + strings.Join(regionTerms, ", ")
}
