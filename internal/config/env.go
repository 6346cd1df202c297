package config

import (
	"context"
	"fmt"
)

// FromEnv returns the overrides carried by the environment. getenv is
// usually os.Getenv.
//
// Only the exact string "true" enables the skip flag; "1", "TRUE" and
// "yes" are ignored.
func FromEnv(getenv func(string) string) *Overrides {
	o := &Overrides{}
	if getenv(EnvSkipInstall) == "true" {
		skip := true
		o.SkipInstall = &skip
	}
	return o
}

// Load builds the effective configuration for a package root: defaults,
// then the Lua file (configFile, or $JQ_INSTALL_CONFIG when empty), then
// the environment. Flags are applied by the caller afterwards, followed
// by Validate.
func Load(ctx context.Context, packageRoot, configFile string, parser *Parser, getenv func(string) string) (*Config, error) {
	cfg := Default(packageRoot)

	if configFile == "" {
		configFile = getenv(EnvConfigFile)
	}

	if configFile != "" {
		overrides, err := parser.ParseFile(ctx, configFile)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", configFile, err)
		}
		cfg.Apply(overrides)
		cfg.ConfigFile = configFile
	}

	cfg.Apply(FromEnv(getenv))

	return cfg, nil
}
