package stage

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Dots-Uzbekistan/Lexora/pkg/research/state"
)

const (
	minPlannedQueries  = 3
	maxKeyTerms        = 3
	minKeyTermLength   = 4
	complexQuestionLen = 8
	fallbackQueryRunes = 30
	verySpecificRunes  = 50
)

type conceptArea struct {
	keyword  string
	concepts []string
}

// conceptAreas maps question stems to the legal areas searched for them.
var conceptAreas = []conceptArea{
	{"трудовой", []string{"трудовое право", "трудовые отношения", "трудовой договор"}},
	{"пенсия", []string{"пенсионное обеспечение", "социальные выплаты", "пенсионный фонд"}},
	{"налог", []string{"налоговое право", "налогообложение", "налоговый кодекс"}},
	{"договор", []string{"договорное право", "обязательства", "гражданское право"}},
	{"собственность", []string{"право собственности", "имущественные права", "гражданское право"}},
	{"семья", []string{"семейное право", "брак", "семейные отношения"}},
	{"наследство", []string{"наследственное право", "наследование", "завещание"}},
	{"уголовн", []string{"уголовное право", "уголовная ответственность", "уголовный кодекс"}},
	{"административн", []string{"административное право", "административная ответственность"}},
	{"земля", []string{"земельное право", "земельные отношения", "землепользование"}},
	{"предприниматель", []string{"предпринимательское право", "бизнес", "коммерческое право"}},
}

var generalAreas = []string{"правовое регулирование", "законодательство", "правовые нормы"}

// actSuffixes narrow retry queries to specific kinds of legal acts.
var actSuffixes = []string{"закон", "постановление", "кодекс"}

// Strategy is a planned set of queries for one research cycle.
type Strategy struct {
	Queries  []state.QueryPlan
	Concepts []string
	Summary  string
}

// PlanQueries builds 3 to 5 queries ordered from general to specific.
func PlanQueries(question string, mode state.SearchMode) Strategy {
	lower := strings.ToLower(question)
	concepts := identifyConcepts(lower)
	terms := keyTerms(lower)

	p := &plan{}
	switch mode {
	case state.SearchModeRetry:
		p.retry(question, concepts, terms)
	case state.SearchModeBroaden:
		p.broaden(concepts)
	default:
		p.standard(question, lower, concepts, terms)
	}

	if len(p.queries) < minPlannedQueries {
		p.add(truncateRunes(question, fallbackQueryRunes), state.TierFallback, nil,
			"Fallback search using truncated user question")
	}
	for _, area := range generalAreas {
		if len(p.queries) >= minPlannedQueries {
			break
		}
		p.add(area, state.TierFallback, []string{area}, "Fallback search across general legislation")
	}

	parts := make([]string, len(p.queries))
	for i, q := range p.queries {
		parts[i] = fmt.Sprintf("%s(%s)", q.Tier, q.Query)
	}

	return Strategy{
		Queries:  p.queries,
		Concepts: uniqueStrings(append(append([]string{}, concepts...), terms...)),
		Summary:  fmt.Sprintf("Generated %d search queries: %s", len(p.queries), strings.Join(parts, " → ")),
	}
}

type plan struct {
	queries []state.QueryPlan
}

// add appends a query unless its text is empty or already planned.
func (p *plan) add(query string, tier state.QueryTier, concepts []string, rationale string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	for _, q := range p.queries {
		if q.Query == query {
			return
		}
	}
	p.queries = append(p.queries, state.QueryPlan{
		Query:     query,
		Tier:      tier,
		Concepts:  concepts,
		Rationale: rationale,
	})
}

func (p *plan) standard(question, lower string, concepts, terms []string) {
	p.add(concepts[0], state.TierGeneral, []string{concepts[0]},
		fmt.Sprintf("Broad search for general legal framework in %s", concepts[0]))

	if len(terms) > 0 {
		p.add(concepts[0]+" "+strings.Join(head(terms, 2), " "), state.TierMedium, head(concepts, 2),
			"Medium specificity search combining legal area with key terms")
	}

	if len(terms) >= 2 {
		p.add(strings.Join(terms, " "), state.TierSpecific, terms,
			"Specific search using key terms from user question")
	}

	if len(concepts) > 1 {
		p.add(concepts[1], state.TierAlternative, concepts[1:2],
			"Alternative search approach for comprehensive coverage")
	}

	if len(strings.Fields(lower)) > complexQuestionLen {
		p.add(cutRunes(question, verySpecificRunes), state.TierVerySpecific, terms,
			"Very specific search for complex multi-part question")
	}
}

// retry pairs the question's key terms with kinds of legal acts, avoiding the
// area-level queries of the standard plan.
func (p *plan) retry(question string, concepts, terms []string) {
	base := strings.Join(head(terms, 2), " ")
	if base == "" {
		base = truncateRunes(question, fallbackQueryRunes)
	}
	for _, suffix := range actSuffixes {
		p.add(base+" "+suffix, state.TierSpecific, terms,
			fmt.Sprintf("Retry narrowing key terms to a %s", suffix))
	}
	if len(concepts) > 2 {
		p.add(concepts[2], state.TierAlternative, concepts[2:3], "Retry through a related legal area")
	}
}

// broaden searches the identified legal areas alone.
func (p *plan) broaden(concepts []string) {
	for _, c := range head(concepts, 4) {
		p.add(c, state.TierGeneral, []string{c}, fmt.Sprintf("Broadened search across %s", c))
	}
	p.add("законодательство Республики Узбекистан", state.TierGeneral, nil,
		"Broadened search across national legislation")
}

func identifyConcepts(lower string) []string {
	var out []string
	for _, area := range conceptAreas {
		if strings.Contains(lower, area.keyword) {
			out = append(out, area.concepts...)
		}
	}
	if len(out) == 0 {
		return append([]string{}, generalAreas...)
	}
	return out
}

// keyTerms returns the first Cyrillic words of four or more letters.
func keyTerms(lower string) []string {
	var terms []string
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	for _, w := range words {
		if len([]rune(w)) >= minKeyTermLength && isCyrillic(w) {
			terms = append(terms, w)
			if len(terms) == maxKeyTerms {
				break
			}
		}
	}
	return terms
}

func isCyrillic(w string) bool {
	for _, r := range w {
		if !((r >= 'а' && r <= 'я') || r == 'ё') {
			return false
		}
	}
	return true
}

func head(list []string, n int) []string {
	if len(list) <= n {
		return list
	}
	return list[:n]
}

func cutRunes(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}

func truncateRunes(s string, n int) string {
	if cut := cutRunes(s, n); cut != strings.TrimSpace(s) {
		return cut + "..."
	}
	return strings.TrimSpace(s)
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
