package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AnalysisResult is the structured reading of one document in one language.
// OriginalTerms[i] is explained by SimplifiedExplanations[i].
type AnalysisResult struct {
	FieldNames             []string `json:"fieldNames"`
	OriginalTerms          []string `json:"originalTerms"`
	SimplifiedExplanations []string `json:"simplifiedExplanations"`
	RequiredActions        []string `json:"requiredActions"`
	VerifiedResources      []string `json:"verifiedResources"`
}

// Term pairs an original term with its explanation.
type Term struct {
	Original    string `json:"original"`
	Explanation string `json:"explanation"`
}

// Validate checks the alignment of terms and explanations.
func (r *AnalysisResult) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: empty analysis", ErrMalformedResult)
	}
	if len(r.OriginalTerms) != len(r.SimplifiedExplanations) {
		return fmt.Errorf("%w: %d terms but %d explanations",
			ErrMalformedResult, len(r.OriginalTerms), len(r.SimplifiedExplanations))
	}
	return nil
}

func (r *AnalysisResult) Terms() []Term {
	terms := make([]Term, 0, len(r.OriginalTerms))
	for i, original := range r.OriginalTerms {
		if i >= len(r.SimplifiedExplanations) {
			break
		}
		terms = append(terms, Term{Original: original, Explanation: r.SimplifiedExplanations[i]})
	}
	return terms
}

func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	return &AnalysisResult{
		FieldNames:             cloneStrings(r.FieldNames),
		OriginalTerms:          cloneStrings(r.OriginalTerms),
		SimplifiedExplanations: cloneStrings(r.SimplifiedExplanations),
		RequiredActions:        cloneStrings(r.RequiredActions),
		VerifiedResources:      cloneStrings(r.VerifiedResources),
	}
}

// Normalize replaces nil lists with empty ones so the JSON form always
// carries arrays.
func (r *AnalysisResult) Normalize() {
	for _, list := range []*[]string{
		&r.FieldNames, &r.OriginalTerms, &r.SimplifiedExplanations,
		&r.RequiredActions, &r.VerifiedResources,
	} {
		if *list == nil {
			*list = []string{}
		}
	}
}

// ContextJSON is the serialized form handed to the chat call as context.
func (r *AnalysisResult) ContextJSON() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode analysis: %w", err)
	}
	return string(data), nil
}

// Checklist renders the required actions as a printable list.
func (r *AnalysisResult) Checklist(title string) string {
	var b strings.Builder
	if title == "" {
		title = "Checklist"
	}
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", len([]rune(title))))
	b.WriteString("\n\n")
	if len(r.RequiredActions) == 0 {
		b.WriteString("No actions required.\n")
		return b.String()
	}
	for _, action := range r.RequiredActions {
		b.WriteString("[ ] ")
		b.WriteString(strings.TrimSpace(action))
		b.WriteString("\n")
	}
	return b.String()
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
