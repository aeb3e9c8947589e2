package token

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Uppercase returns a Transformer that converts every token value to upper
// case. Token types are preserved.
func Uppercase() Transformer {
	return mapValues(strings.ToUpper)
}

// Lowercase returns a Transformer that converts every token value to lower
// case. Token types are preserved.
func Lowercase() Transformer {
	return mapValues(strings.ToLower)
}

// Capitalize returns a Transformer that title-cases every token value
// ("STR" becomes "Str"). Token types are preserved.
func Capitalize() Transformer {
	return mapValues(func(s string) string {
		// cases.Caser is stateful and not safe for concurrent use.
		return cases.Title(language.English).String(s)
	})
}

func mapValues(f func(string) string) Transformer {
	return TransformerFunc(func(tokens []Token) []Token {
		out := make([]Token, len(tokens))
		for i, t := range tokens {
			out[i] = Token{Value: f(t.Value), Type: t.Type}
		}
		return out
	})
}
