package config

// Default returns the default wallet configuration.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Timeouts: TimeoutConfig{
			RPCSeconds:      10,
			ExplorerSeconds: 15,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
