package approval

import (
	"strings"
	"unicode"

	"github.com/Dots-Uzbekistan/Lexora/pkg/research/state"
)

// Kind is the classified meaning of a human reply to an approval request.
type Kind string

const (
	KindApproveAll    Kind = "approve_all"
	KindApproveIDs    Kind = "approve_ids"
	KindRetry         Kind = "retry"
	KindBroaden       Kind = "broaden"
	KindProceed       Kind = "proceed"
	KindDecline       Kind = "decline"
	KindNotAnApproval Kind = "not_an_approval"
)

const minDocumentIDDigits = 6

// Decision is the result of classifying a reply.
type Decision struct {
	Kind Kind     `json:"kind"`
	IDs  []string `json:"ids,omitempty"`
}

// IsApproval reports whether the reply resolves the pending request.
func (d Decision) IsApproval() bool {
	return d.Kind != KindNotAnApproval
}

// Sentinel returns the bulk token stored in approved ids for the decision,
// or an empty string for id lists and declines.
func (d Decision) Sentinel() string {
	switch d.Kind {
	case KindApproveAll:
		return state.SentinelAll
	case KindRetry:
		return state.SentinelRetry
	case KindBroaden:
		return state.SentinelBroaden
	case KindProceed:
		return state.SentinelProceed
	}
	return ""
}

type rule struct {
	kind  Kind
	words []string
}

// precedence lists the bulk keywords, first match wins. Explicit id lists are
// only considered when none of these is present.
var precedence = []rule{
	{kind: KindApproveAll, words: []string{"all", "все", "всё"}},
	{kind: KindRetry, words: []string{"retry"}},
	{kind: KindBroaden, words: []string{"broaden"}},
	{kind: KindProceed, words: []string{"proceed"}},
	{kind: KindDecline, words: []string{"none", "skip"}},
}

// confirmations mark a reply as an approval without choosing anything specific.
var confirmations = []string{"approved", "approve", "select", "choose", "yes", "ok", "okay", "confirm", "да"}

// confirmationStems match inflected Russian forms (одобряю, одобрено).
var confirmationStems = []string{"одобр"}

// MenuOption is one numbered choice of the recovery menu shown when no
// candidate source was relevant.
type MenuOption struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	Label string `json:"label"`
}

// RecoveryMenu lists the no-sources choices in display order.
var RecoveryMenu = []MenuOption{
	{ID: "1", Kind: KindRetry, Label: "Try a different search approach"},
	{ID: "2", Kind: KindBroaden, Label: "Broaden the search criteria"},
	{ID: "3", Kind: KindProceed, Label: "Proceed with the best available sources anyway"},
}

func menuReply(text string) (Kind, bool) {
	reply := strings.TrimSuffix(strings.TrimSpace(text), ".")
	for _, o := range RecoveryMenu {
		if o.ID == reply {
			return o.Kind, true
		}
	}
	return "", false
}

// Classify maps free text to a decision. Text with no approval keyword and
// no document id is KindNotAnApproval. A bare confirmation is read as
// approving every candidate.
func Classify(text string) Decision {
	tokens := tokenize(text)
	ids := documentIDs(tokens)

	for _, r := range precedence {
		if containsAny(tokens, r.words) {
			return Decision{Kind: r.kind}
		}
	}
	if len(ids) > 0 {
		return Decision{Kind: KindApproveIDs, IDs: ids}
	}
	if containsAny(tokens, confirmations) || hasStem(tokens, confirmationStems) {
		return Decision{Kind: KindApproveAll}
	}
	return Decision{Kind: KindNotAnApproval}
}

// ClassifyFor classifies a reply in the context of the suspension reason.
// While no sources were found the numbered menu options are accepted and a
// bulk approval means proceeding with the best available sources.
func ClassifyFor(kind state.ApprovalKind, text string) Decision {
	if kind == state.ApprovalNoSources {
		if k, ok := menuReply(text); ok {
			return Decision{Kind: k}
		}
		d := Classify(text)
		if d.Kind == KindApproveAll {
			d.Kind = KindProceed
		}
		return d
	}
	return Classify(text)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func documentIDs(tokens []string) []string {
	var ids []string
	seen := map[string]bool{}
	for _, t := range tokens {
		if len(t) < minDocumentIDDigits || !allDigits(t) || seen[t] {
			continue
		}
		seen[t] = true
		ids = append(ids, t)
	}
	return ids
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func containsAny(tokens, words []string) bool {
	for _, t := range tokens {
		for _, w := range words {
			if t == w {
				return true
			}
		}
	}
	return false
}

func hasStem(tokens, stems []string) bool {
	for _, t := range tokens {
		for _, s := range stems {
			if strings.HasPrefix(t, s) {
				return true
			}
		}
	}
	return false
}
