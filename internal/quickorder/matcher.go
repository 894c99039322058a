package quickorder

import (
	"strings"
	"unicode"

	"github.com/tapntake/api/internal/catalog"
)

// MatchStatus represents the status of a match operation
type MatchStatus int

const (
	Matched MatchStatus = iota
	Ambiguous
	Unmatched
)

func (s MatchStatus) String() string {
	switch s {
	case Matched:
		return "Matched"
	case Ambiguous:
		return "Ambiguous"
	case Unmatched:
		return "Unmatched"
	default:
		return "Unknown"
	}
}

// MatchResult contains the result of a matching operation
type MatchResult struct {
	Status     MatchStatus
	Product    *catalog.Product  // when Matched
	Candidates []catalog.Product // when Ambiguous
}

// Matcher performs keyword-based product matching.
type Matcher struct {
	products []catalog.Product
	keywords [][]string // pre-tokenized keywords per product
	names    [][]string // name tokens per product
}

const (
	variantWeight = 5
	regularWeight = 1
)

// Variant keywords tell otherwise similar products apart. When the input
// names one, candidates must carry it too.
var variantKeywords = map[string]bool{
	"hot":     true,
	"iced":    true,
	"cold":    true,
	"shaken":  true,
	"veg":     true,
	"chicken": true,
	"paneer":  true,
	"egg":     true,
}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "of": true, "the": true, "with": true, "on": true,
}

// NewMatcher indexes products by the words of their name and category.
func NewMatcher(products []catalog.Product) *Matcher {
	m := &Matcher{
		products: products,
		keywords: make([][]string, len(products)),
		names:    make([][]string, len(products)),
	}
	for i, p := range products {
		name := tokenize(normalize(p.Name))
		m.names[i] = name
		kw := append([]string(nil), name...)
		kw = append(kw, tokenize(normalize(p.Category))...)
		m.keywords[i] = dedupe(kw)
	}
	return m
}

// Match scores every product against text. Ties go to the product whose
// whole name was typed, so "americano" picks Americano over Shaken
// Americano.
func (m *Matcher) Match(text string) MatchResult {
	inputTokens := make(map[string]bool)
	inputVariants := make(map[string]bool)
	for _, tok := range tokenize(normalize(text)) {
		inputTokens[tok] = true
		if variantKeywords[tok] {
			inputVariants[tok] = true
		}
	}

	type scoredProduct struct {
		idx   int
		score int
	}
	var scored []scoredProduct

	for i, keywords := range m.keywords {
		// Hard filter: every variant in the input must be on the product
		if !containsAll(keywords, inputVariants) {
			continue
		}

		// A variant alone ("iced") is not a match
		score, regular := 0, false
		for _, kw := range keywords {
			if inputTokens[kw] {
				if variantKeywords[kw] {
					score += variantWeight
				} else {
					score += regularWeight
					regular = true
				}
			}
		}
		if regular {
			scored = append(scored, scoredProduct{idx: i, score: score})
		}
	}

	if len(scored) == 0 {
		return MatchResult{Status: Unmatched}
	}

	maxScore := 0
	for _, s := range scored {
		if s.score > maxScore {
			maxScore = s.score
		}
	}
	var top []int
	for _, s := range scored {
		if s.score == maxScore {
			top = append(top, s.idx)
		}
	}

	if len(top) > 1 {
		var exact []int
		for _, idx := range top {
			if coveredBy(m.names[idx], inputTokens) {
				exact = append(exact, idx)
			}
		}
		if len(exact) > 0 {
			top = exact
		}
	}

	if len(top) == 1 {
		p := m.products[top[0]]
		return MatchResult{Status: Matched, Product: &p}
	}

	candidates := make([]catalog.Product, len(top))
	for i, idx := range top {
		candidates[i] = m.products[idx]
	}
	return MatchResult{Status: Ambiguous, Candidates: candidates}
}

func containsAll(keywords []string, want map[string]bool) bool {
	for w := range want {
		found := false
		for _, kw := range keywords {
			if kw == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func coveredBy(words []string, tokens map[string]bool) bool {
	for _, w := range words {
		if !tokens[w] {
			return false
		}
	}
	return true
}

// normalize converts a string to lowercase and replaces non-alphanumeric chars with spaces
func normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// tokenize splits on whitespace, drops stop words and folds plurals.
func tokenize(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if stopWords[f] {
			continue
		}
		out = append(out, stem(f))
	}
	return out
}

// stem folds a simple English plural: "coffees" and "coffee" match.
func stem(w string) string {
	if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
		return w[:len(w)-1]
	}
	return w
}

func dedupe(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := words[:0]
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
