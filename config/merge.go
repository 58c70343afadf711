package config

import "slices"

// Merge merges two configs, with the second one taking precedence. Scalar
// fields are replaced when set in override; pattern lists are combined
// without duplicates.
func Merge(base, override *Config) *Config {
	result := *base

	if override.Root != "" {
		result.Root = override.Root
	}
	if override.Prefix != "" {
		result.Prefix = override.Prefix
	}
	if override.LogLevel != "" {
		result.LogLevel = override.LogLevel
	}
	if override.MaxFileSize != 0 {
		result.MaxFileSize = override.MaxFileSize
	}
	if override.MetricsAddr != "" {
		result.MetricsAddr = override.MetricsAddr
	}
	result.Protected = mergePatterns(base.Protected, override.Protected)
	result.Ignore = mergePatterns(base.Ignore, override.Ignore)
	return &result
}

func mergePatterns(base, override []string) []string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	merged := make([]string, 0, len(base)+len(override))
	for _, pattern := range append(slices.Clone(base), override...) {
		if !slices.Contains(merged, pattern) {
			merged = append(merged, pattern)
		}
	}
	return merged
}
