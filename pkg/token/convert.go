package token

// Mapper rewrites token values through a lookup table. A token whose value
// is a key in Lookup gets the mapped value and is relabeled with Label;
// other tokens pass through unchanged.
type Mapper struct {
	Label  string
	Lookup map[string]string
}

// Transform applies the lookup to every token.
func (m Mapper) Transform(tokens []Token) []Token {
	out := make([]Token, len(tokens))
	for i, t := range tokens {
		out[i] = m.apply(t)
	}
	return out
}

func (m Mapper) apply(t Token) Token {
	if mapped, ok := m.Lookup[t.Value]; ok {
		return Token{Value: mapped, Type: m.Label}
	}
	return t
}

// FirstMatch returns a Transformer that applies, per token, the first mapper
// whose lookup contains the token value. Tokens matching no mapper pass
// through unchanged.
func FirstMatch(mappers ...Mapper) Transformer {
	return TransformerFunc(func(tokens []Token) []Token {
		out := make([]Token, len(tokens))
		for i, t := range tokens {
			out[i] = t
			for _, m := range mappers {
				if _, ok := m.Lookup[t.Value]; ok {
					out[i] = m.apply(t)
					break
				}
			}
		}
		return out
	})
}
