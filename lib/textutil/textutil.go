package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases a name and removes all whitespace so that
// cosmetic differences between sources don't break matching.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// BestMatch returns the candidate most similar to name by Jaro-Winkler
// similarity over normalized forms. ok is false when no candidate clears
// the threshold.
func BestMatch(name string, candidates []string, threshold float64) (best string, similarity float64, ok bool) {
	normalized := NormalizeName(name)

	for _, c := range candidates {
		s := matchr.JaroWinkler(normalized, NormalizeName(c), false)
		if s > similarity {
			similarity = s
			best = c
		}
	}

	if similarity < threshold {
		return "", similarity, false
	}
	return best, similarity, true
}
