package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Alpha (2001)", "Alpha (2001)"},
		{"colon to dash", "Alien: Resurrection", "Alien- Resurrection"},
		{"slash to dash", "AC/DC Live", "AC-DC Live"},
		{"ampersand spelled out", "Fast & Furious", "Fast and Furious"},
		{"bracketed junk dropped", "Alpha [Extended Cut]", "Alpha"},
		{"unsafe removed", `Who? "What" <Where>`, "Who What Where"},
		{"whitespace collapsed", "Alpha   Beta", "Alpha Beta"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeFileName(tc.input); got != tc.want {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSanitizeToken(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "BIG_BUCK_BUNNY", "big_buck_bunny"},
		{"spaces become underscores", "My Disc", "my_disc"},
		{"device path", "/dev/sr0", "dev_sr0"},
		{"empty", "", "unknown"},
		{"all punctuation", "///", "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeToken(tc.input); got != tc.want {
				t.Fatalf("SanitizeToken(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
