package keyword

import (
	"sort"
	"strings"
)

// Languages with morphological rules. Anything else expands to the
// normalized input only.
const (
	LanguageEnglish = "en"
	LanguageFrench  = "fr"
)

// LanguageSupported reports whether Expand has morphological rules for the
// language. Unsupported languages still expand, but without variants.
func LanguageSupported(language string) bool {
	switch language {
	case LanguageEnglish, LanguageFrench:
		return true
	}
	return false
}

// Normalize lowercases a keyword, replaces separators with spaces and
// collapses whitespace. Returns "" for blank input.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

// Expand normalizes the raw keywords and adds singular and plural variants
// for the final word of each term. The result is sorted, duplicate-free and
// closed under variant derivation, so expanding it again returns the same set.
func Expand(raw []string, language string) []string {
	set := make(map[string]struct{}, len(raw)*3)
	var queue []string
	add := func(w string) {
		if _, ok := set[w]; !ok {
			set[w] = struct{}{}
			queue = append(queue, w)
		}
	}
	for _, r := range raw {
		if w := Normalize(r); w != "" {
			add(w)
		}
	}
	if LanguageSupported(language) {
		// The suffix rules are ambiguous for some words, so one pass is
		// not enough: derive variants of variants until nothing new
		// appears. Singularizing never grows a word and pluralizing only
		// applies to singular bases, so this terminates.
		for len(queue) > 0 {
			w := queue[0]
			queue = queue[1:]
			for _, v := range variants(w, language) {
				add(v)
			}
		}
	}
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// variants returns both number forms of a term. Multi-word terms vary the
// last word only.
func variants(term, language string) []string {
	head, last := splitLast(term)
	base := last
	for {
		s := singular(base, language)
		if s == base {
			break
		}
		base = s
	}
	return []string{join(head, base), join(head, plural(base, language))}
}

func splitLast(term string) (head, last string) {
	if i := strings.LastIndexByte(term, ' '); i >= 0 {
		return term[:i], term[i+1:]
	}
	return "", term
}

func join(head, last string) string {
	if head == "" {
		return last
	}
	return head + " " + last
}

// singular strips a plural suffix using language-specific rules. The rules
// are heuristic, but singular(plural(w)) == w holds for every word plural
// can produce.
func singular(w, language string) string {
	if language == LanguageFrench {
		return singularFR(w)
	}
	return singularEN(w)
}

func plural(w, language string) string {
	if language == LanguageFrench {
		return pluralFR(w)
	}
	return pluralEN(w)
}

func singularEN(w string) string {
	switch {
	case len(w) > 3 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 2 && (strings.HasSuffix(w, "ses") || strings.HasSuffix(w, "xes") ||
		strings.HasSuffix(w, "zes") || strings.HasSuffix(w, "ches") || strings.HasSuffix(w, "shes")):
		return w[:len(w)-2]
	case len(w) > 2 && strings.HasSuffix(w, "s") &&
		!strings.HasSuffix(w, "ss") && !strings.HasSuffix(w, "us") && !strings.HasSuffix(w, "is"):
		return w[:len(w)-1]
	}
	return w
}

func pluralEN(w string) string {
	switch {
	case strings.HasSuffix(w, "s"):
		return w
	case strings.HasSuffix(w, "y") && len(w) > 1 && !isVowel(w[len(w)-2]):
		return w[:len(w)-1] + "ies"
	case strings.HasSuffix(w, "x") || strings.HasSuffix(w, "z") ||
		strings.HasSuffix(w, "ch") || strings.HasSuffix(w, "sh"):
		return w + "es"
	}
	return w + "s"
}

func singularFR(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "eaux"):
		return w[:len(w)-1]
	case len(w) > 3 && strings.HasSuffix(w, "eux"):
		return w[:len(w)-1]
	case len(w) > 4 && strings.HasSuffix(w, "aux"):
		return w[:len(w)-3] + "al"
	case len(w) > 2 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		return w[:len(w)-1]
	}
	return w
}

func pluralFR(w string) string {
	switch {
	case strings.HasSuffix(w, "eau") || strings.HasSuffix(w, "eu"):
		return w + "x"
	case len(w) > 2 && strings.HasSuffix(w, "al"):
		return w[:len(w)-2] + "aux"
	case strings.HasSuffix(w, "s") || strings.HasSuffix(w, "x") || strings.HasSuffix(w, "z"):
		return w
	}
	return w + "s"
}

func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
