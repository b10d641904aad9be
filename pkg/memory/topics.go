package memory

import "strings"

// topicKeywords maps subject topics to trigger words found in student
// queries. First match wins, checked in subject order.
var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"fractions", []string{"fraction", "numerator", "denominator"}},
	{"algebra", []string{"algebra", "equation", "variable", "solve for"}},
	{"geometry", []string{"geometry", "triangle", "circle", "angle", "area", "perimeter"}},
	{"arithmetic", []string{"addition", "subtraction", "multiplication", "division", "multiply", "divide"}},
	{"statistics", []string{"statistics", "probability", "average", "median"}},
	{"math", []string{"math", "number", "calculate"}},
	{"biology", []string{"biology", "cell", "photosynthesis", "organism", "dna", "evolution"}},
	{"chemistry", []string{"chemistry", "atom", "molecule", "element", "reaction"}},
	{"physics", []string{"physics", "force", "gravity", "energy", "motion", "velocity"}},
	{"science", []string{"science", "experiment", "hypothesis"}},
	{"grammar", []string{"grammar", "verb", "noun", "sentence", "punctuation"}},
	{"writing", []string{"essay", "writing", "paragraph", "thesis"}},
	{"reading", []string{"reading", "comprehension", "vocabulary", "poem", "novel"}},
	{"history", []string{"history", "war", "revolution", "ancient", "empire", "president"}},
	{"geography", []string{"geography", "continent", "country", "capital", "map"}},
	{"programming", []string{"programming", "code", "python", "algorithm", "function", "loop"}},
	{"computing", []string{"computer", "software", "internet", "binary"}},
}

// ExtractTopic guesses the topic of a query by keyword. Returns ""
// when nothing matches.
func ExtractTopic(query string) string {
	lower := strings.ToLower(query)
	for _, entry := range topicKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.topic
			}
		}
	}
	return ""
}
