package token

import (
	"sort"
	"strings"
)

// Pipeline composes a tokenizer with a transformer chain into a reusable
// function over values. It implements Tokenizer itself, so pipelines nest:
// a standardizer can use another pipeline as its tokenizer.
type Pipeline struct {
	// Tokenizer splits the raw value.
	Tokenizer Tokenizer

	// Transformers are applied to the token list in order.
	Transformers []Transformer

	// Delim joins token values in Key.
	Delim string

	// Sort orders tokens by value after transformation.
	Sort bool

	// Unique drops duplicate token values, keeping the first occurrence.
	Unique bool
}

// Tokens tokenizes value and applies the transformer chain.
func (p Pipeline) Tokens(value string) []Token {
	tokens := p.Tokenizer.Tokens(value)
	for _, t := range p.Transformers {
		tokens = t.Transform(tokens)
	}
	if p.Unique {
		tokens = dedupe(tokens)
	}
	if p.Sort {
		tokens = sortByValue(tokens)
	}
	return tokens
}

// Key returns the token values joined with the pipeline delimiter. This is
// the collision key when the pipeline sorts its tokens.
func (p Pipeline) Key(value string) string {
	return strings.Join(Values(p.Tokens(value)), p.Delim)
}

func dedupe(tokens []Token) []Token {
	seen := make(map[string]bool, len(tokens))
	var kept []Token
	for _, t := range tokens {
		if seen[t.Value] {
			continue
		}
		seen[t.Value] = true
		kept = append(kept, t)
	}
	return kept
}

func sortByValue(tokens []Token) []Token {
	out := make([]Token, len(tokens))
	copy(out, tokens)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value < out[j].Value
	})
	return out
}
