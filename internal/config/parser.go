package config

import "strings"

// Parse reads JSONC configuration content over base and validates the result.
func Parse(content string, base Config) (Config, []Warning, error) {
	if strings.TrimSpace(content) == "" {
		cfg := base
		applyEnv(&cfg)
		validatedWarnings, err := Validate(cfg)
		if err != nil {
			return Config{}, nil, err
		}
		return cfg, validatedWarnings, nil
	}
	return parseJSONC(content, base)
}
