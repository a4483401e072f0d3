package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile loads configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key = value
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	case "datadir":
		cfg.DataDir = value

	// Explorer
	case "explorer.etherscan_key":
		cfg.Explorer.EtherscanKey = value
	case "explorer.polygonscan_key":
		cfg.Explorer.PolygonscanKey = value

	// Timeouts
	case "timeout.rpc":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Timeouts.RPCSeconds = n
	case "timeout.explorer":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Timeouts.ExplorerSeconds = n

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string) error {
	content := `# WLLT Wallet Configuration

# Data directory (default: ~/.wllt)
# datadir = ~/.wllt

# ============================================================================
# Explorer APIs
# ============================================================================

# Optional API keys for the etherscan-style explorers. Without a key the
# public rate limits apply and the wallet falls back to blockscout more
# often.
# explorer.etherscan_key =
# explorer.polygonscan_key =

# ============================================================================
# Timeouts (seconds)
# ============================================================================

timeout.rpc = 10
timeout.explorer = 15

# ============================================================================
# Logging
# ============================================================================

log.level = info
log.json = false
# log.file = wllt.log
`
	return os.WriteFile(path, []byte(content), 0644)
}
