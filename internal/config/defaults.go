package config

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 4241,
			Host: "localhost",
		},
		Portfolio: PortfolioConfig{
			DocumentKey: "portfolio/greenfin",
			LoansFile:   "import/loans.json",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/greenfin",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
