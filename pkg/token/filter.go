package token

import "unicode"

// Filter returns a Transformer that keeps tokens whose value satisfies pred.
func Filter(pred func(string) bool) Transformer {
	return TransformerFunc(func(tokens []Token) []Token {
		var kept []Token
		for _, t := range tokens {
			if pred(t.Value) {
				kept = append(kept, t)
			}
		}
		return kept
	})
}

// AlphaNumeric reports whether s is non-empty and contains only letters and
// digits.
func AlphaNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// DropTypes returns a Transformer that removes tokens whose type is one of
// the given labels.
func DropTypes(types ...string) Transformer {
	drop := make(map[string]bool, len(types))
	for _, t := range types {
		drop[t] = true
	}
	return TransformerFunc(func(tokens []Token) []Token {
		var kept []Token
		for _, t := range tokens {
			if !drop[t.Type] {
				kept = append(kept, t)
			}
		}
		return kept
	})
}

// KeepTypes returns a Transformer that keeps only tokens whose type is one
// of the given labels.
func KeepTypes(types ...string) Transformer {
	keep := make(map[string]bool, len(types))
	for _, t := range types {
		keep[t] = true
	}
	return TransformerFunc(func(tokens []Token) []Token {
		var kept []Token
		for _, t := range tokens {
			if keep[t.Type] {
				kept = append(kept, t)
			}
		}
		return kept
	})
}

// CollapseRepeated returns a Transformer that drops tokens whose value
// equals the value of the immediately preceding token.
func CollapseRepeated() Transformer {
	return TransformerFunc(func(tokens []Token) []Token {
		if len(tokens) == 0 {
			return tokens
		}
		kept := []Token{tokens[0]}
		for _, t := range tokens[1:] {
			if t.Value == kept[len(kept)-1].Value {
				continue
			}
			kept = append(kept, t)
		}
		return kept
	})
}
