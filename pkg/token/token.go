// Package token provides the tokenization pipeline that value standardizers
// and collision-key generators are built from: tokenizers split a raw value
// into typed tokens, transformers filter and rewrite the token list, and a
// Pipeline composes both into a reusable function over column values.
package token

// Token type labels. Tokenizers label tokens with the character class they
// were split on; transformers may relabel tokens they rewrite.
const (
	TypeAlpha   = "ALPHA"
	TypeDigit   = "DIGIT"
	TypeSpace   = "SPACE"
	TypeUnknown = "UNK"
	TypeAny     = "ANY"
)

// Token is a single string token with a type label.
type Token struct {
	Value string
	Type  string
}

// New creates a token with the default ANY type.
func New(value string) Token {
	return Token{Value: value, Type: TypeAny}
}

// Tokenizer splits a value into a list of tokens.
type Tokenizer interface {
	Tokens(value string) []Token
}

// Transformer rewrites a token list. Implementations must not mutate the
// input slice; callers may reuse it.
type Transformer interface {
	Transform(tokens []Token) []Token
}

// TransformerFunc adapts a plain function to the Transformer interface.
type TransformerFunc func(tokens []Token) []Token

// Transform calls f.
func (f TransformerFunc) Transform(tokens []Token) []Token {
	return f(tokens)
}

// Values returns the token values in order.
func Values(tokens []Token) []string {
	if len(tokens) == 0 {
		return nil
	}
	values := make([]string, len(tokens))
	for i, t := range tokens {
		values[i] = t.Value
	}
	return values
}

// Types returns the token type labels in order.
func Types(tokens []Token) []string {
	if len(tokens) == 0 {
		return nil
	}
	types := make([]string, len(tokens))
	for i, t := range tokens {
		types[i] = t.Type
	}
	return types
}
