package consultation

import (
	"fmt"
	"strings"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/pkg/search"
)

func systemPrompt(now time.Time) string {
	var sb strings.Builder
	sb.WriteString("You are a legal consultation assistant specializing in the law of Uzbekistan.\n")
	sb.WriteString(fmt.Sprintf("Current date: %s\n\n", now.Format("2006-01-02")))
	sb.WriteString("RULES:\n")
	sb.WriteString("1. Answer ONLY from the search results or document text you are given. Never guess.\n")
	sb.WriteString("2. Prefer the most recent documents and the current edition of legal acts.\n")
	sb.WriteString("3. If the material is not enough, reply exactly: \"I could not find sufficient information in the search results to answer your question\".\n")
	sb.WriteString("4. Cite sources as [Document Title](document_id) - date.\n")
	sb.WriteString("5. Be concise. Answer directly, without describing your workflow.\n")
	return sb.String()
}

func snippetPrompt(question string, docs []search.Document) string {
	var sb strings.Builder
	sb.WriteString("<search_results>\n")
	writeResults(&sb, docs)
	sb.WriteString("</search_results>\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(question)
	return sb.String()
}

func documentPrompt(question string, top search.Document, markdown string, docs []search.Document) string {
	var sb strings.Builder
	sb.WriteString("<search_results>\n")
	writeResults(&sb, docs)
	sb.WriteString("</search_results>\n\n")
	sb.WriteString(fmt.Sprintf("<document id=%q title=%q>\n", top.ID, top.Title))
	sb.WriteString(truncateRunes(markdown, documentRunes))
	sb.WriteString("\n</document>\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(question)
	return sb.String()
}

func writeResults(sb *strings.Builder, docs []search.Document) {
	for i, d := range docs {
		date := ""
		if d.Date != "" {
			date = " - " + d.Date
		}
		sb.WriteString(fmt.Sprintf("%d. %s%s\n   ID: %s\n   Snippet: %s\n", i+1, d.Title, date, d.ID, d.Snippet))
	}
}

// Digest renders the best documents as a cited list. It is the answer when
// no model is configured or the model fails.
func Digest(docs []search.Document) string {
	var sb strings.Builder
	sb.WriteString("Here is what I found in the legal database for your question:\n")
	for i, d := range docs {
		if i == digestSize {
			break
		}
		sb.WriteString(fmt.Sprintf("\n%d. **%s**", i+1, d.Title))
		if d.Date != "" {
			sb.WriteString(" - " + d.Date)
		}
		sb.WriteString("\n")
		if s := strings.TrimSpace(d.Snippet); s != "" {
			sb.WriteString("   " + s + "\n")
		}
		sb.WriteString(fmt.Sprintf("   Source: [%s](%s) (ID: %s)\n", d.Title, d.URL, d.ID))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
