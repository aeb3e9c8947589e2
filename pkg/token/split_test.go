package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChartypeSplitter_DefaultRules(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		values []string
		types  []string
	}{
		{
			name:   "mixed letters and digits",
			value:  "W35ST",
			values: []string{"W", "35", "ST"},
			types:  []string{TypeAlpha, TypeDigit, TypeAlpha},
		},
		{
			name:   "spaces are unclassified by default",
			value:  "W 35th Street",
			values: []string{"W", " ", "35", "th", " ", "Street"},
			types:  []string{TypeAlpha, TypeUnknown, TypeDigit, TypeAlpha, TypeUnknown, TypeAlpha},
		},
		{
			name:   "punctuation run",
			value:  "A//B",
			values: []string{"A", "//", "B"},
			types:  []string{TypeAlpha, TypeUnknown, TypeAlpha},
		},
		{
			name:   "empty value",
			value:  "",
			values: nil,
			types:  nil,
		},
		{
			name:   "single class",
			value:  "12345",
			values: []string{"12345"},
			types:  []string{TypeDigit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := NewChartypeSplitter().Tokens(tt.value)
			assert.Equal(t, tt.values, Values(tokens))
			assert.Equal(t, tt.types, Types(tokens))
		})
	}
}

func TestChartypeSplitter_SpaceRule(t *testing.T) {
	rules := append(DefaultRules(), SpaceRule())
	tokens := NewChartypeSplitter(rules...).Tokens("E 1st/2nd")

	assert.Equal(t, []string{"E", " ", "1", "st", "/", "2", "nd"}, Values(tokens))
	assert.Equal(t, []string{
		TypeAlpha, TypeSpace, TypeDigit, TypeAlpha, TypeUnknown, TypeDigit, TypeAlpha,
	}, Types(tokens))
}
