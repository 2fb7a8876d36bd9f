package config

import "time"

// LayoutConfig selects the layout oracle.
type LayoutConfig struct {
	// Command is an external layout program reading GML on stdin and writing
	// GML on stdout. Empty keeps every node at the origin.
	Command string `mapstructure:"command"`
	// Timeout bounds a single layout run.
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServeConfig holds web server settings.
type ServeConfig struct {
	Port      int    `mapstructure:"port"`
	StaticDir string `mapstructure:"static"`
	// CacheDir holds the layout cache; empty keeps it in memory.
	CacheDir string `mapstructure:"cache_dir"`
	// CacheTTL expires cached layouts; zero keeps them forever.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		Timeout: DefaultLayoutTimeout,
	}
}

func DefaultServeConfig() ServeConfig {
	return ServeConfig{
		Port:     DefaultPort,
		CacheDir: DefaultCacheDir,
		CacheTTL: 24 * time.Hour,
	}
}
