package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_AlphaNumeric(t *testing.T) {
	in := []Token{
		{Value: "W", Type: TypeAlpha},
		{Value: " ", Type: TypeUnknown},
		{Value: "35", Type: TypeDigit},
		{Value: "/", Type: TypeUnknown},
		{Value: "ST", Type: TypeAlpha},
	}

	out := Filter(AlphaNumeric).Transform(in)

	assert.Equal(t, []string{"W", "35", "ST"}, Values(out))
	// Input is left untouched.
	assert.Len(t, in, 5)
}

func TestDropTypes(t *testing.T) {
	in := []Token{
		{Value: "E", Type: TypeAlpha},
		{Value: " ", Type: TypeSpace},
		{Value: "25", Type: TypeDigit},
	}

	out := DropTypes(TypeSpace).Transform(in)
	assert.Equal(t, []string{"E", "25"}, Values(out))
}

func TestKeepTypes(t *testing.T) {
	in := []Token{
		{Value: "E", Type: TypeAlpha},
		{Value: " ", Type: TypeSpace},
		{Value: "25", Type: TypeDigit},
	}

	out := KeepTypes(TypeDigit).Transform(in)
	assert.Equal(t, []string{"25"}, Values(out))
}

func TestCollapseRepeated(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "adjacent duplicates collapse",
			in:   []string{"A", "A", "B", "A"},
			want: []string{"A", "B", "A"},
		},
		{
			name: "no duplicates",
			in:   []string{"A", "B", "C"},
			want: []string{"A", "B", "C"},
		},
		{
			name: "empty input",
			in:   nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in []Token
			for _, v := range tt.in {
				in = append(in, New(v))
			}
			out := CollapseRepeated().Transform(in)
			assert.Equal(t, tt.want, Values(out))
		})
	}
}
