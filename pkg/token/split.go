package token

import "unicode"

// ClassRule assigns a type label to runes matching a predicate. Rules are
// evaluated in order; the first match decides the class of a rune.
type ClassRule struct {
	Match func(rune) bool
	Label string
}

// DefaultRules classifies letters as ALPHA and digits as DIGIT. Runes that
// match no rule are classified UNK.
func DefaultRules() []ClassRule {
	return []ClassRule{
		{Match: unicode.IsLetter, Label: TypeAlpha},
		{Match: unicode.IsDigit, Label: TypeDigit},
	}
}

// SpaceRule classifies whitespace as SPACE. Append it to DefaultRules when
// whitespace tokens must be distinguishable (e.g. to filter them by type).
func SpaceRule() ClassRule {
	return ClassRule{Match: unicode.IsSpace, Label: TypeSpace}
}

// ChartypeSplitter splits a value into maximal runs of characters of the
// same class: "W35ST" becomes [W 35 ST] with types [ALPHA DIGIT ALPHA].
type ChartypeSplitter struct {
	rules []ClassRule
}

// NewChartypeSplitter creates a splitter with the given classification
// rules. With no rules it uses DefaultRules.
func NewChartypeSplitter(rules ...ClassRule) *ChartypeSplitter {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &ChartypeSplitter{rules: rules}
}

// Tokens splits value into chartype runs.
func (s *ChartypeSplitter) Tokens(value string) []Token {
	if value == "" {
		return nil
	}

	var tokens []Token
	var run []rune
	runLabel := ""

	flush := func() {
		if len(run) > 0 {
			tokens = append(tokens, Token{Value: string(run), Type: runLabel})
			run = run[:0]
		}
	}

	for _, r := range value {
		label := s.classify(r)
		if label != runLabel {
			flush()
			runLabel = label
		}
		run = append(run, r)
	}
	flush()

	return tokens
}

func (s *ChartypeSplitter) classify(r rune) string {
	for _, rule := range s.rules {
		if rule.Match(r) {
			return rule.Label
		}
	}
	return TypeUnknown
}
