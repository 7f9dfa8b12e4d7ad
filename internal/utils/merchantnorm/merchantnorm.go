// Package merchantnorm derives deterministic merchant names from raw
// transaction descriptors. The transform is pure: identical inputs yield
// identical names across processes and platforms.
package merchantnorm

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Volatile trailing tokens: store numbers ("#123", "store 42", "no. 7"),
	// bare digit runs, and the location words they leave behind once their
	// digits are stripped.
	volatileTokenRe = regexp.MustCompile(`^(#\d+|\d{2,}|store\d*|ste\d*|no\.?\d*|unit\d*)$`)
)

// Normalize lowercases the descriptor, collapses whitespace, and strips
// volatile trailing digit and store-number tokens. It is idempotent:
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(descriptor string) string {
	s := strings.ToLower(strings.TrimSpace(descriptor))
	s = whitespaceRe.ReplaceAllString(s, " ")

	tokens := strings.Split(s, " ")
	for len(tokens) > 1 {
		last := tokens[len(tokens)-1]
		if volatileTokenRe.MatchString(last) {
			tokens = tokens[:len(tokens)-1]
			continue
		}
		break
	}
	return strings.Join(tokens, " ")
}
