package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapper_Transform(t *testing.T) {
	m := Mapper{
		Label: "STREET_TYPE",
		Lookup: map[string]string{
			"STREET": "ST",
			"AVENUE": "AVE",
		},
	}

	in := []Token{
		{Value: "35", Type: TypeDigit},
		{Value: "STREET", Type: TypeAlpha},
		{Value: "WEST", Type: TypeAlpha},
	}
	out := m.Transform(in)

	assert.Equal(t, []string{"35", "ST", "WEST"}, Values(out))
	assert.Equal(t, []string{TypeDigit, "STREET_TYPE", TypeAlpha}, Types(out))
	// Misses keep their original label.
	assert.Equal(t, TypeAlpha, out[2].Type)
}

func TestFirstMatch(t *testing.T) {
	streets := Mapper{Label: "STREET_TYPE", Lookup: map[string]string{"ST": "ST", "STREET": "ST"}}
	directions := Mapper{Label: "DIRECTION", Lookup: map[string]string{"W": "WEST", "ST": "SOUTH"}}

	tests := []struct {
		name      string
		value     string
		wantValue string
		wantType  string
	}{
		{
			name:      "first mapper wins on shared key",
			value:     "ST",
			wantValue: "ST",
			wantType:  "STREET_TYPE",
		},
		{
			name:      "falls through to second mapper",
			value:     "W",
			wantValue: "WEST",
			wantType:  "DIRECTION",
		},
		{
			name:      "no mapper matches",
			value:     "BROADWAY",
			wantValue: "BROADWAY",
			wantType:  TypeAlpha,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FirstMatch(streets, directions).Transform([]Token{{Value: tt.value, Type: TypeAlpha}})
			assert.Equal(t, tt.wantValue, out[0].Value)
			assert.Equal(t, tt.wantType, out[0].Type)
		})
	}
}
