package eventlog

import "fmt"

// Backends.
const (
	BackendNone   = "none"
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// Config selects and configures the decision log backend.
type Config struct {
	Backend string `json:"backend"`
	Path    string `json:"path"`
	// MaxSizeMB enables rotation of the jsonl backend when positive.
	MaxSizeMB  int `json:"max_size_mb"`
	MaxBackups int `json:"max_backups"`
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies defaults to unset fields.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendNone
	}
	if c.Path == "" {
		switch c.Backend {
		case BackendJSONL:
			c.Path = "platoon-log.jsonl"
		case BackendSQLite:
			c.Path = "platoon-log.db"
		}
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendNone, BackendJSONL, BackendSQLite:
	default:
		return fmt.Errorf("unknown eventlog backend %q", c.Backend)
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("eventlog rotation settings must not be negative")
	}
	return nil
}

// New opens the store selected by cfg. It returns nil, nil for BackendNone.
func New(cfg Config) (LogStore, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendJSONL:
		if cfg.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		}
		return NewJSONLStore(cfg.Path)
	case BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown eventlog backend %q", cfg.Backend)
	}
}
