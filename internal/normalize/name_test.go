package normalize

import (
	"testing"
)

func TestName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "punctuation and case",
			input: "Lincoln Elem.",
			want:  "lincoln elem",
		},
		{
			name:  "collapse whitespace",
			input: "  Washington   Middle ",
			want:  "washington middle",
		},
		{
			name:  "non-alphanumerics become spaces",
			input: "St. Mary's/North",
			want:  "st mary s north",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Name(tt.input); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizerDesignators(t *testing.T) {
	n := NewNormalizer(DistrictDesignators...)

	tests := []struct {
		input string
		want  string
	}{
		{"Keller ISD", "keller"},
		{"Keller I.S.D.", "keller"},
		{"Keller School District", "keller"},
		{"Keller Independent", "keller independent"},
		{"ISDN Network District", "isdn network district"}, // no word-boundary hit
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := n.Name(tt.input); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
