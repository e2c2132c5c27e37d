package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"docs path", "https://lex.uz/docs/4396419", "4396419"},
		{"acts path", "https://lex.uz/acts/111189?ONDATE=01.01.2024", "111189"},
		{"id query", "https://lex.uz/pages/getpage.aspx?id=987654", "987654"},
		{"id colon", "https://lex.uz/ru/search?id:123456", "123456"},
		{"no id", "https://lex.uz/ru/about", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDocumentID(tt.url))
		})
	}
}

func TestExtractDate(t *testing.T) {
	assert.Equal(t, "15.03.2023", ExtractDate("https://lex.uz/docs/1?ONDATE=15.03.2023"))
	assert.Equal(t, "", ExtractDate("https://lex.uz/docs/1"))
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		title string
		url   string
		want  float64
	}{
		{"base", "Информация", "https://lex.uz/docs/1", 0.5},
		{"acts bonus", "Информация", "https://lex.uz/acts/1", 0.7},
		{"keyword bonus counted once", "Закон о порядке", "https://lex.uz/docs/1", 0.6},
		{"current edition", "Кодекс (текущая редакция)", "https://lex.uz/docs/1", 0.75},
		{"all bonuses", "Закон (действующая редакция)", "https://lex.uz/acts/1", 0.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.title, tt.url), 1e-9)
		})
	}
}

func TestExtractDocuments(t *testing.T) {
	docs := ExtractDocuments([]RawResult{
		{URL: "https://lex.uz/docs/111", Title: "<strong>Закон</strong> о пенсиях", Description: "минимальный размер &amp; порядок"},
		{URL: "https://lex.uz/docs/222?action=compare", Title: "Сравнение"},
		{URL: "https://example.com/news", Title: "News"},
		{URL: "https://lex.uz/acts/333?ONDATE=01.02.2024", Title: "Положение"},
	})

	if assert.Len(t, docs, 2) {
		assert.Equal(t, "111", docs[0].ID)
		assert.Equal(t, "Закон о пенсиях", docs[0].Title)
		assert.Equal(t, "минимальный размер & порядок", docs[0].Snippet)
		assert.InDelta(t, 0.6, docs[0].Score, 1e-9)

		assert.Equal(t, "333", docs[1].ID)
		assert.Equal(t, "01.02.2024", docs[1].Date)
		assert.InDelta(t, 0.8, docs[1].Score, 1e-9)
	}
}
