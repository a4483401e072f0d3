// Package config handles application configuration.
//
// Everything here is operator-tunable runtime configuration. Chain
// facts (chain ids, endpoint lists) live in the network registry and
// are not configurable.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/wllt-labs/wllt-core/internal/network"
)

// Config holds the wallet's runtime configuration.
type Config struct {
	// DataDir is the root of all persistent state.
	DataDir string `conf:"datadir"`

	// Explorer holds explorer API settings.
	Explorer ExplorerConfig

	// Timeouts holds network call timeouts.
	Timeouts TimeoutConfig

	// Log holds logging settings.
	Log LogConfig
}

// ExplorerConfig holds explorer API settings. API keys are optional;
// without them the etherscan-style endpoints apply public rate limits.
type ExplorerConfig struct {
	EtherscanKey   string `conf:"explorer.etherscan_key"`
	PolygonscanKey string `conf:"explorer.polygonscan_key"`
}

// APIKeys maps each network to its explorer API key. Etherscan keys
// cover the Ethereum chains, polygonscan keys the Polygon chains.
func (e ExplorerConfig) APIKeys() map[network.ID]string {
	return map[network.ID]string{
		network.Ethereum: e.EtherscanKey,
		network.Sepolia:  e.EtherscanKey,
		network.Polygon:  e.PolygonscanKey,
		network.Mumbai:   e.PolygonscanKey,
	}
}

// TimeoutConfig holds per-call network timeouts in seconds.
type TimeoutConfig struct {
	RPCSeconds      int `conf:"timeout.rpc"`
	ExplorerSeconds int `conf:"timeout.explorer"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.wllt
//	macOS:   ~/Library/Application Support/Wllt
//	Windows: %APPDATA%\Wllt
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wllt"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Wllt")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Wllt")
		}
		return filepath.Join(home, "AppData", "Roaming", "Wllt")
	default:
		return filepath.Join(home, ".wllt")
	}
}

// DBDir returns the key-value store directory.
func (c *Config) DBDir() string {
	return filepath.Join(c.DataDir, "db")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "wllt.conf")
}
