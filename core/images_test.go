package core

import "testing"

func TestCompilerImageForResolvesConfiguredLanguage(t *testing.T) {
	cfg := Config{CompilerImages: map[string]string{
		"c":       "compiler-gcc",
		"cpp":     "compiler-gxx",
		"default": "compiler-generic",
	}}
	cases := []struct {
		name string
		want string
	}{
		{"c", "compiler-gcc"},
		{"C", "compiler-gcc"},
		{"  cpp  ", "compiler-gxx"},
		{"rust", "compiler-generic"},
		{"", "compiler-generic"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := compilerImageFor(cfg, c.name); got != c.want {
				t.Fatalf("compilerImageFor(%q) = %q, want %q", c.name, got, c.want)
			}
		})
	}
}
