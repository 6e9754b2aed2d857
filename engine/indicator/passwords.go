package indicator

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var tokenSeparator = regexp.MustCompile(`[\s:=,;'"()\[\]<>]+`)

// ExtractTokens splits a matched password line into candidate tokens.
// Separators cover the delimiters seen around passwords in phishing
// lures ("password: INFECTED", 'pass="ABC123"').
func ExtractTokens(s string) []string {
	var tokens []string
	for _, tok := range tokenSeparator.Split(s, -1) {
		tok = strings.TrimFunc(tok, unicode.IsPunct)
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// IsPlausiblePassword reports whether a token looks like the kind of
// weak password malware authors put in lure text: 3 to 20 characters,
// all of them uppercase letters or digits.
func IsPlausiblePassword(tok string) bool {
	if len(tok) < 3 || len(tok) > 20 {
		return false
	}
	for _, r := range tok {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// PasswordCandidates builds the candidate set from the matched
// password-category lines plus a bare-token sweep over the full text.
// The result is sorted and deduplicated.
func PasswordCandidates(passwordHits []string, fullText string) []string {
	seen := make(map[string]struct{})

	for _, hit := range passwordHits {
		for _, tok := range ExtractTokens(hit) {
			if IsPlausiblePassword(tok) {
				seen[tok] = struct{}{}
			}
		}
	}
	for _, tok := range strings.Fields(fullText) {
		tok = strings.TrimFunc(tok, unicode.IsPunct)
		if IsPlausiblePassword(tok) {
			seen[tok] = struct{}{}
		}
	}

	candidates := make([]string, 0, len(seen))
	for tok := range seen {
		candidates = append(candidates, tok)
	}
	sort.Strings(candidates)
	return candidates
}
