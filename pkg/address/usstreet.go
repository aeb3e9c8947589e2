package address

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/VIDA-NYU/openclean-geo/pkg/token"
)

// Case names accepted by NewStandardizer.
const (
	CaseCapitalize = "capitalize"
	CaseLower      = "lower"
	CaseUpper      = "upper"
)

// settings collects the optional behavior of the street name functions.
type settings struct {
	mappings  Mappings
	unique    bool
	alphaNum  bool
	collapse  bool
	caseMode  string
	caseXform token.Transformer
}

// Option adjusts the behavior of the street name functions.
type Option func(*settings)

func newSettings(opts ...Option) settings {
	s := settings{
		mappings: DefaultMappings(),
		caseMode: CaseCapitalize,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithMappings replaces the built-in lookup tables.
func WithMappings(m Mappings) Option {
	return func(s *settings) { s.mappings = m }
}

// WithUnique removes duplicate tokens. Duplicates are kept by default because
// abbreviations like ST are ambiguous: dropping one from 'ST MARKS ST' would
// collapse it with 'MARKS STREET'.
func WithUnique() Option {
	return func(s *settings) { s.unique = true }
}

// WithAlphaNumericOnly drops every token that contains a non alphanumeric
// character. By default only whitespace tokens are removed, so separators
// like '/' survive tokenization.
func WithAlphaNumericOnly() Option {
	return func(s *settings) { s.alphaNum = true }
}

// WithCollapseRepeated removes consecutive identical tokens.
func WithCollapseRepeated() Option {
	return func(s *settings) { s.collapse = true }
}

// WithCase selects the character case of standardized names. Accepted values
// are CaseCapitalize, CaseLower and CaseUpper.
func WithCase(name string) Option {
	return func(s *settings) { s.caseMode = name }
}

// WithCaseTransformer applies a custom transformer to standardized tokens
// instead of one of the named case transforms.
func WithCaseTransformer(t token.Transformer) Option {
	return func(s *settings) { s.caseXform = t }
}

// NumberSuffixFilter removes ordinal suffix tokens from street numbers. It
// expects tokens produced by a character type splitter, which separates the
// number from its suffix, e.g. '1' and 'ST' for '1st'. A 'ST' token is
// removed if the preceding token ends with '1', 'ND' if it ends with '2',
// 'RD' if it ends with '3' and 'TH' if it ends with any digit. The first
// token is never removed.
type NumberSuffixFilter struct{}

// Transform implements token.Transformer.
func (NumberSuffixFilter) Transform(tokens []token.Token) []token.Token {
	if len(tokens) == 0 {
		return tokens
	}
	out := make([]token.Token, 0, len(tokens))
	out = append(out, tokens[0])
	for i := 1; i < len(tokens); i++ {
		prev := tokens[i-1].Value
		switch strings.ToUpper(tokens[i].Value) {
		case "ST":
			if strings.HasSuffix(prev, "1") {
				continue
			}
		case "ND":
			if strings.HasSuffix(prev, "2") {
				continue
			}
		case "RD":
			if strings.HasSuffix(prev, "3") {
				continue
			}
		case "TH":
			if endsInDigit(prev) {
				continue
			}
		}
		out = append(out, tokens[i])
	}
	return out
}

func endsInDigit(s string) bool {
	if s == "" {
		return false
	}
	c := s[len(s)-1]
	return c >= '0' && c <= '9'
}

// PrefixSuffixStandardizer rewrites the first and last token of a street
// name. The first token is expanded if it abbreviates an avenue, as in 'Ave
// of the Americas', or a cardinal direction. The last token is replaced by
// the standard abbreviation for its street type. Token lists with fewer than
// two tokens are returned unchanged.
type PrefixSuffixStandardizer struct {
	prefix token.Transformer
	suffix token.Transformer
}

// NewPrefixSuffixStandardizer returns a standardizer over the built-in
// lookup tables.
func NewPrefixSuffixStandardizer() *PrefixSuffixStandardizer {
	return newPrefixSuffixStandardizer(DefaultMappings())
}

func newPrefixSuffixStandardizer(m Mappings) *PrefixSuffixStandardizer {
	return &PrefixSuffixStandardizer{
		prefix: token.FirstMatch(
			token.Mapper{Label: token.TypeAlpha, Lookup: m.Avenues},
			token.Mapper{Label: TypeDirection, Lookup: m.Directions},
		),
		suffix: token.Mapper{Label: TypeStreetType, Lookup: m.StreetTypes},
	}
}

// Transform implements token.Transformer.
func (s *PrefixSuffixStandardizer) Transform(tokens []token.Token) []token.Token {
	if len(tokens) < 2 {
		return tokens
	}
	out := make([]token.Token, 0, len(tokens))
	out = append(out, s.prefix.Transform(tokens[:1])...)
	out = append(out, tokens[1:len(tokens)-1]...)
	out = append(out, s.suffix.Transform(tokens[len(tokens)-1:])...)
	return out
}

// NewStreetNameKeyer returns a collision key generator for US street names.
// Values are split into character type runs, non alphanumeric tokens are
// removed and the remaining tokens are upper-cased, normalized and sorted,
// e.g. 'W 35th Street' maps to '35 ST WEST'. Duplicate tokens are kept.
func NewStreetNameKeyer(opts ...Option) token.Pipeline {
	s := newSettings(opts...)
	return token.Pipeline{
		Tokenizer: token.NewChartypeSplitter(),
		Transformers: []token.Transformer{
			token.Filter(token.AlphaNumeric),
			token.Uppercase(),
			NumberSuffixFilter{},
			token.Mapper{Label: token.TypeDigit, Lookup: s.mappings.Numbers},
			newPrefixSuffixStandardizer(s.mappings),
		},
		Delim:  " ",
		Sort:   true,
		Unique: s.unique,
	}
}

// NewStreetTokenizer returns a tokenizer for US street names. Values are
// split into character type runs with whitespace tokens removed. The
// remaining tokens are upper-cased, street number suffixes are filtered,
// spelled out street numbers are replaced by digits and the leading and
// trailing tokens are standardized. Token order is preserved.
func NewStreetTokenizer(opts ...Option) token.Pipeline {
	s := newSettings(opts...)
	keep := token.Transformer(token.DropTypes(token.TypeSpace))
	if s.alphaNum {
		keep = token.Filter(token.AlphaNumeric)
	}
	transformers := []token.Transformer{
		keep,
		token.Uppercase(),
		NumberSuffixFilter{},
		token.Mapper{Label: token.TypeDigit, Lookup: s.mappings.Numbers},
		newPrefixSuffixStandardizer(s.mappings),
	}
	if s.collapse {
		transformers = append(transformers, token.CollapseRepeated())
	}
	rules := append(token.DefaultRules(), token.SpaceRule())
	return token.Pipeline{
		Tokenizer:    token.NewChartypeSplitter(rules...),
		Transformers: transformers,
		Delim:        "",
		Unique:       s.unique,
	}
}

// NewStandardizer returns a value function that rewrites US street names in
// a standardized form, e.g. 'e 25TH str' becomes 'East 25 St'. The case of
// the result is controlled by WithCase or WithCaseTransformer and defaults
// to capitalized tokens. An unknown case name yields an error.
func NewStandardizer(opts ...Option) (token.Pipeline, error) {
	s := newSettings(opts...)
	var transformers []token.Transformer
	switch {
	case s.caseXform != nil:
		transformers = []token.Transformer{s.caseXform}
	case s.caseMode == CaseCapitalize:
		transformers = []token.Transformer{token.Capitalize()}
	case s.caseMode == CaseLower:
		transformers = []token.Transformer{token.Lowercase()}
	case s.caseMode == CaseUpper:
		transformers = nil
	default:
		return token.Pipeline{}, eris.Errorf("address: unknown case transform %q", s.caseMode)
	}
	return token.Pipeline{
		Tokenizer:    NewStreetTokenizer(opts...),
		Transformers: transformers,
		Delim:        " ",
	}, nil
}
