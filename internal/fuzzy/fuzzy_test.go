package fuzzy

import (
	"testing"
)

func TestTokenSortRatioOrderInsensitive(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{
			name: "identical strings",
			a:    "lincoln elementary",
			b:    "lincoln elementary",
			want: 100,
		},
		{
			name: "reordered tokens",
			a:    "city isd north",
			b:    "north city isd",
			want: 100,
		},
		{
			name: "both empty",
			a:    "",
			b:    "",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TokenSortRatio(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("TokenSortRatio(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTokenSortRatioSimilarNames(t *testing.T) {
	score := TokenSortRatio("lincoln elementary", "lincoln elem")
	if score <= 50 || score >= 100 {
		t.Errorf("expected a partial score for near-duplicate names, got %d", score)
	}
}

func TestExtractOne(t *testing.T) {
	candidates := []string{"washington middle", "lincoln elementary", "lincoln elem"}

	hit, ok := ExtractOne("lincoln elementary", candidates, TokenSortRatio, 85)
	if !ok {
		t.Fatal("expected a hit above cutoff")
	}
	if hit.Index != 1 {
		t.Errorf("best index = %d, want 1", hit.Index)
	}
	if hit.Score != 100 {
		t.Errorf("best score = %d, want 100", hit.Score)
	}
}

func TestExtractOneCutoff(t *testing.T) {
	candidates := []string{"completely different"}
	if _, ok := ExtractOne("lincoln elementary", candidates, TokenSortRatio, 90); ok {
		t.Error("expected no hit when nothing reaches the cutoff")
	}
}

func TestExtractOneTieKeepsFirst(t *testing.T) {
	candidates := []string{"lincoln elementary", "elementary lincoln"}
	hit, ok := ExtractOne("lincoln elementary", candidates, TokenSortRatio, 0)
	if !ok {
		t.Fatal("expected a hit")
	}
	// Both candidates token-sort to the same string; the earlier one wins.
	if hit.Index != 0 {
		t.Errorf("tie should keep the first candidate, got index %d", hit.Index)
	}
}

func TestExtractOneEmptyCandidates(t *testing.T) {
	if _, ok := ExtractOne("anything", nil, TokenSortRatio, 0); ok {
		t.Error("expected no hit for empty candidate list")
	}
}
