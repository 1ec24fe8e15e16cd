package core

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadBuildScript reads a YAML array of shell-command strings and reduces it
// to a single argv, joining commands with "&&" and whitespace-splitting the
// result into tokens, mirroring the source judge's build-script handling.
func LoadBuildScript(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read build script %s: %w", path, err)
	}
	var commands []string
	if err := yaml.Unmarshal(data, &commands); err != nil {
		return nil, fmt.Errorf("parse build script %s: %w", path, err)
	}
	if len(commands) == 0 {
		return nil, fmt.Errorf("build script %s has no commands", path)
	}
	joined := strings.Join(commands, " && ")
	return strings.Fields(joined), nil
}

// LoadArgv reads a test case's argument file and whitespace-splits it into argv tokens.
func LoadArgv(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read argument file %s: %w", path, err)
	}
	return strings.Fields(string(data)), nil
}

// readRequiredText reads a fixture file that must exist.
func readRequiredText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read fixture %s: %w", path, err)
	}
	return string(data), nil
}
