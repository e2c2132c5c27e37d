package search

import (
	"html"
	"regexp"
	"strings"
)

var (
	documentIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/docs/(\d+)`),
		regexp.MustCompile(`/acts/(\d+)`),
		regexp.MustCompile(`id[=:](\d+)`),
	}
	onDatePattern = regexp.MustCompile(`ONDATE=(\d{2}\.\d{2}\.\d{4})`)
	tagPattern    = regexp.MustCompile(`<[^>]*>`)

	legalKeywords  = []string{"закон", "кодекс", "постановление", "положение", "порядок", "правило"}
	currentEdition = []string{"текущая редакция", "действующая редакция"}
)

// RawResult is a web search hit before lex.uz filtering.
type RawResult struct {
	URL         string
	Title       string
	Description string
}

// ExtractDocumentID returns the lex.uz document id of a url, or "" when the
// url does not point at a document.
func ExtractDocumentID(url string) string {
	for _, p := range documentIDPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}

// ExtractDate returns the edition date (dd.mm.yyyy) carried in the url.
func ExtractDate(url string) string {
	if m := onDatePattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}

// Score is the provider-side heuristic relevance of a hit, in [0.5, 1.0]
func Score(title, url string) float64 {
	score := 0.5
	if strings.Contains(url, "/acts/") {
		score += 0.2
	}

	lowerTitle := strings.ToLower(title)
	for _, kw := range legalKeywords {
		if strings.Contains(lowerTitle, kw) {
			score += 0.1
			break
		}
	}
	for _, marker := range currentEdition {
		if strings.Contains(lowerTitle, marker) {
			score += 0.15
			break
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// ExtractDocuments converts raw web hits into lex.uz documents. Hits without a
// document id and comparison pages are dropped.
func ExtractDocuments(results []RawResult) []Document {
	docs := make([]Document, 0, len(results))
	for _, r := range results {
		id := ExtractDocumentID(r.URL)
		if id == "" || strings.Contains(r.URL, "action=compare") {
			continue
		}
		title := cleanText(r.Title)
		docs = append(docs, Document{
			ID:      id,
			Title:   title,
			Snippet: cleanText(r.Description),
			URL:     r.URL,
			Date:    ExtractDate(r.URL),
			Score:   Score(title, r.URL),
		})
	}
	return docs
}

func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(tagPattern.ReplaceAllString(s, "")))
}
