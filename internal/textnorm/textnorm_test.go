package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Saint-Étienne":      "saint-etienne",
		"  plusieurs   mots ": "plusieurs mots",
		"Garde D'ENFANT":     "garde d'enfant",
		"Crèche ou Nounou":   "creche ou nounou",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContainsFold(t *testing.T) {
	if !ContainsFold("Expertise: Plomberie, Électricité", "electri") {
		t.Fatal("expected accent-insensitive substring match")
	}
	if ContainsFold("Expertise: Garde d'enfants", "electri") {
		t.Fatal("unexpected match")
	}
}

func TestEqualFold(t *testing.T) {
	if !EqualFold("Saint-Étienne", "saint-etienne") {
		t.Fatal("expected cities to compare equal once normalized")
	}
}
