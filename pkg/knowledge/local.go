package knowledge

import (
	"context"
	"sort"
	"strings"
)

// LocalRetriever serves facts from a built-in store. It needs no
// network and backs the degraded mode when external services are
// unavailable.
type LocalRetriever struct {
	facts []Fact
}

func NewLocalRetriever() *LocalRetriever {
	return &LocalRetriever{facts: builtinFacts}
}

func (r *LocalRetriever) Name() string { return "local" }

// Retrieve matches query words against fact topics and content.
// Exact topic hits score highest, then keyword overlap, then fuzzy
// word-prefix matches.
func (r *LocalRetriever) Retrieve(ctx context.Context, query string, limit int) ([]Fact, error) {
	words := queryWords(query)
	if len(words) == 0 {
		return nil, nil
	}

	type scored struct {
		fact  Fact
		score int
	}
	var matches []scored

	for _, fact := range r.facts {
		score := 0
		topic := strings.ToLower(fact.Topic)
		content := strings.ToLower(fact.Content)

		for _, w := range words {
			switch {
			case topic == w:
				score += 10
			case strings.Contains(topic, w) || fuzzyMatch(topic, w):
				score += 5
			case strings.Contains(content, w):
				score += 2
			case fuzzyContains(content, w):
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{fact, score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	facts := make([]Fact, len(matches))
	for i, m := range matches {
		facts[i] = m.fact
	}
	return facts, nil
}

func (r *LocalRetriever) Close() error { return nil }

// queryWords extracts lowercase words of 3+ runes, dropping stop words.
func queryWords(query string) []string {
	stop := map[string]bool{
		"the": true, "and": true, "for": true, "what": true, "how": true,
		"why": true, "can": true, "you": true, "help": true, "with": true,
		"about": true, "tell": true, "does": true, "are": true, "please": true,
		"explain": true, "this": true, "that": true,
	}

	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, ".,!?;:'\"()")
		if len(w) >= 3 && !stop[w] {
			words = append(words, w)
		}
	}
	return words
}

// fuzzyMatch reports whether a and b share a prefix of at least four
// characters, catching plural and inflected forms.
func fuzzyMatch(a, b string) bool {
	n := 4
	if len(a) < n || len(b) < n {
		return false
	}
	return a[:n] == b[:n]
}

// fuzzyContains checks fuzzyMatch against each word of text.
func fuzzyContains(text, word string) bool {
	for _, w := range strings.Fields(text) {
		if fuzzyMatch(strings.Trim(w, ".,"), word) {
			return true
		}
	}
	return false
}

// builtinFacts is the offline fact store, keyed loosely by school
// subjects.
var builtinFacts = []Fact{
	{Topic: "fractions", Source: "local", Content: "A fraction represents a part of a whole: the numerator (top) counts parts, the denominator (bottom) says how many equal parts make the whole."},
	{Topic: "fractions", Source: "local", Content: "To add fractions with different denominators, first rewrite them with a common denominator, then add the numerators."},
	{Topic: "algebra", Source: "local", Content: "To solve a linear equation, apply the same operation to both sides until the variable stands alone."},
	{Topic: "algebra", Source: "local", Content: "A variable is a symbol, usually a letter, standing in for an unknown or changing number."},
	{Topic: "geometry", Source: "local", Content: "The angles of any triangle always add up to 180 degrees."},
	{Topic: "geometry", Source: "local", Content: "The area of a rectangle is its length times its width; a triangle's area is half its base times its height."},
	{Topic: "statistics", Source: "local", Content: "The mean is the sum of values divided by their count; the median is the middle value when sorted."},
	{Topic: "biology", Source: "local", Content: "Photosynthesis is how plants convert sunlight, water, and carbon dioxide into glucose and oxygen."},
	{Topic: "biology", Source: "local", Content: "The cell is the basic unit of life; plant cells have walls and chloroplasts that animal cells lack."},
	{Topic: "chemistry", Source: "local", Content: "An atom consists of protons and neutrons in a nucleus surrounded by electrons; the proton count defines the element."},
	{Topic: "chemistry", Source: "local", Content: "In a chemical reaction, bonds between atoms break and re-form; matter is never created or destroyed."},
	{Topic: "physics", Source: "local", Content: "Newton's second law: force equals mass times acceleration (F = ma)."},
	{Topic: "physics", Source: "local", Content: "Energy cannot be created or destroyed, only converted between forms such as kinetic and potential."},
	{Topic: "grammar", Source: "local", Content: "A complete sentence needs a subject and a predicate; the verb must agree with the subject in number."},
	{Topic: "writing", Source: "local", Content: "A strong essay states a thesis, supports it with evidence in body paragraphs, and restates it in the conclusion."},
	{Topic: "history", Source: "local", Content: "Primary sources are firsthand accounts from the period studied; secondary sources interpret them later."},
	{Topic: "geography", Source: "local", Content: "Earth has seven continents and five oceans; latitude measures north-south position, longitude east-west."},
	{Topic: "programming", Source: "local", Content: "An algorithm is a precise sequence of steps that solves a problem; loops repeat steps and conditionals choose between them."},
	{Topic: "programming", Source: "local", Content: "A function groups reusable steps behind a name, taking inputs and returning outputs."},
}
