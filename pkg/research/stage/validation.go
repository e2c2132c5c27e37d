package stage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Dots-Uzbekistan/Lexora/pkg/research/state"
)

const (
	titleWeight       = 0.4
	snippetWeight     = 0.3
	providerWeight    = 0.3
	relevantThreshold = 0.3
	maxReasonTerms    = 3
)

// ScoreSources rates every hit against the question and returns the results
// sorted by score, highest first. Ties keep search order.
func ScoreSources(question string, hits []state.SearchHit) []state.Validation {
	keywords := uniqueStrings(strings.Fields(strings.ToLower(question)))
	denominator := float64(len(keywords))
	if denominator == 0 {
		denominator = 1
	}

	results := make([]state.Validation, 0, len(hits))
	for _, hit := range hits {
		titleWords := wordSet(hit.Title)
		snippetWords := wordSet(hit.Snippet)

		var titleMatches, snippetMatches int
		var matched []string
		for _, k := range keywords {
			inTitle, inSnippet := titleWords[k], snippetWords[k]
			if inTitle {
				titleMatches++
			}
			if inSnippet {
				snippetMatches++
			}
			if inTitle || inSnippet {
				matched = append(matched, k)
			}
		}

		score := float64(titleMatches)/denominator*titleWeight +
			float64(snippetMatches)/denominator*snippetWeight +
			hit.Score*providerWeight
		relevant := score >= relevantThreshold

		results = append(results, state.Validation{
			DocumentID: hit.DocumentID,
			Title:      hit.Title,
			URL:        hit.URL,
			Relevant:   relevant,
			Score:      score,
			Reasoning:  reasoning(relevant, score, matched),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func reasoning(relevant bool, score float64, matched []string) string {
	switch {
	case relevant && len(matched) > 0:
		return fmt.Sprintf("Contains key terms: %s - directly addresses the question", strings.Join(head(matched, maxReasonTerms), ", "))
	case relevant:
		return fmt.Sprintf("High relevance score (%.2f) - content matches question intent", score)
	default:
		return fmt.Sprintf("Limited relevance (%.2f) - few matching keywords with question", score)
	}
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// validationSummary lists relevant sources and the best non-relevant ones.
func validationSummary(results []state.Validation) string {
	var relevant, rest []state.Validation
	for _, r := range results {
		if r.Relevant {
			relevant = append(relevant, r)
		} else {
			rest = append(rest, r)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Validated %d sources: %d relevant, %d not relevant", len(results), len(relevant), len(rest))
	if len(results) == 0 {
		return sb.String()
	}
	sb.WriteString("\n\nValidation Results:\n")

	if len(relevant) > 0 {
		sb.WriteString("\n**RELEVANT SOURCES:**\n")
		writeValidations(&sb, relevant)
	}
	if len(rest) > 0 {
		sb.WriteString("**TOP NON-RELEVANT SOURCES (for context):**\n")
		if len(rest) > 3 {
			rest = rest[:3]
		}
		writeValidations(&sb, rest)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func writeValidations(sb *strings.Builder, list []state.Validation) {
	for i, r := range list {
		fmt.Fprintf(sb, "%d. **%s** (Score: %.2f)\n", i+1, r.Title, r.Score)
		fmt.Fprintf(sb, "   ID: %s\n", r.DocumentID)
		fmt.Fprintf(sb, "   Reasoning: %s\n\n", r.Reasoning)
	}
}
