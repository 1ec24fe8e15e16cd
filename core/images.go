package core

import "strings"

// compilerImageFor resolves the per-language compiler image configured for
// cfg, falling back to cfg's generic "default" entry (spec §6: "one
// 'compiler' image per supported language toolchain").
func compilerImageFor(cfg Config, language string) string {
	key := strings.ToLower(strings.TrimSpace(language))
	if img, ok := cfg.CompilerImages[key]; ok {
		return img
	}
	return cfg.CompilerImages["default"]
}
