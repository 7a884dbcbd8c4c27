package config

import (
	"os"
	"path/filepath"
)

// defaultTokenFile is where the CLI keeps its session between runs.
func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "hopital_token.json"
	}
	return filepath.Join(dir, "hopital", "hopital_token.json")
}
