package core

import "testing"

func TestMatchWhitespaceNormalization(t *testing.T) {
	cases := []struct {
		name     string
		expected string
		observed string
		want     bool
	}{
		{"exact", "Hello, World!\n", "Hello, World!\n", true},
		{"extra_internal_whitespace", " 1   2 3 \n", "1 2 3\n", true},
		{"missing_trailing_newline", "1 2 3", "1 2 3\n", true},
		{"different_line_count", "a\nb\n", "a\n", false},
		{"different_token", "1 2 3\n", "1 2 4\n", false},
		{"both_empty", "", "", true},
		{"reflexive", "abc def\n", "abc def\n", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Match(c.expected, c.observed); got != c.want {
				t.Fatalf("Match(%q, %q) = %v, want %v", c.expected, c.observed, got, c.want)
			}
		})
	}
}

func TestMatchSymmetricAndReflexive(t *testing.T) {
	pairs := [][2]string{
		{"a b\nc d\n", "a  b\nc d"},
		{"1 2 3\n", "1   2 3 \n"},
	}
	for _, p := range pairs {
		if Match(p[0], p[1]) != Match(p[1], p[0]) {
			t.Fatalf("Match not symmetric for %q / %q", p[0], p[1])
		}
		if !Match(p[0], p[0]) {
			t.Fatalf("Match not reflexive for %q", p[0])
		}
	}
}
