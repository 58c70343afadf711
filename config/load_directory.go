package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadDirectory loads all YAML, JSON and TOML files from a directory and combines
// them into a single Config. Files are loaded in lexicographical order and
// later files override earlier ones.
func LoadDirectory(dirPath string) (*Config, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var configFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yml" || ext == ".yaml" || ext == ".json" || ext == ".toml" {
			configFiles = append(configFiles, filepath.Join(dirPath, entry.Name()))
		}
	}
	sort.Strings(configFiles)

	if len(configFiles) == 0 {
		return nil, fmt.Errorf("no config files found in directory: %s", dirPath)
	}

	var merged *Config
	for _, file := range configFiles {
		config, err := ParseFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse file %s: %w", file, err)
		}
		if merged == nil {
			merged = config
		} else {
			merged = Merge(merged, config)
		}
	}
	return merged, nil
}

// parsePath loads a single file or, for a directory, every config file in
// it.
func parsePath(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return LoadDirectory(path)
	}
	return ParseFile(path)
}
