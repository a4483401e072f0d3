package config

import "fmt"

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir must not be empty")
	}
	if cfg.Timeouts.RPCSeconds <= 0 {
		return fmt.Errorf("timeout.rpc must be positive")
	}
	if cfg.Timeouts.ExplorerSeconds <= 0 {
		return fmt.Errorf("timeout.explorer must be positive")
	}
	switch cfg.Log.Level {
	case "trace", "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
	}
	return nil
}
