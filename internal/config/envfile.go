package config

import (
	"os"
	"path/filepath"
	"strings"
)

// LoadEnvFile parses a simple .env file with KEY=VALUE lines (no export, no
// quote handling). Lines starting with # are comments. Lines without '=' or
// with an empty key are skipped; a malformed line never aborts parsing of the
// lines after it.
func LoadEnvFile(path string) (map[string]string, error) {
	clean := filepath.Clean(path)
	b, err := os.ReadFile(clean)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string)
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.IndexByte(line, '=')
		if i < 0 {
			continue
		}
		k := strings.TrimSpace(line[:i])
		if k == "" {
			continue
		}
		m[k] = strings.TrimSpace(line[i+1:])
	}
	return m, nil
}
