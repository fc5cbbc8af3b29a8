package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port           int      `yaml:"port"`
	DatabaseURL    string   `yaml:"database_url"`
	DatabaseType   string   `yaml:"database_type"`
	SessionSecret  string   `yaml:"session_secret"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimit      int      `yaml:"rate_limit"`
	RateWindowSecs int      `yaml:"rate_window_secs"`
	MetricsAddr    string   `yaml:"metrics_addr"`
}

// ParseFlags resolves configuration with flag > env > config file
// precedence and applies defaults and validation.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var configPath string
	var origins string

	fs := flag.NewFlagSet("civic-sync", flag.ContinueOnError)

	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&configPath, "c", "", "Optional YAML config file")
	fs.StringVar(&origins, "origins", "", "Comma-separated allowed origins for mutations")
	fs.StringVar(&cfg.MetricsAddr, "metrics", "", "Metrics listen address (empty disables)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.SessionSecret, "session-secret", "", "Session token secret (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	var fileCfg Config
	if configPath == "" {
		configPath = os.Getenv("CONFIG_FILE")
	}
	if configPath != "" {
		raw, err := os.ReadFile(configPath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	// Fall back to environment variables, then the config file
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else if fileCfg.Port != 0 {
			cfg.Port = fileCfg.Port
		} else {
			cfg.Port = 3324 // default
		}
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = fileCfg.DatabaseURL
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d, DATABASE_URL env, or config file)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
	}
	if cfg.DatabaseType == "" {
		cfg.DatabaseType = fileCfg.DatabaseType
	}
	if cfg.DatabaseType == "" {
		cfg.DatabaseType = "sqlite"
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("database type must be sqlite or postgres")
	}

	// Secrets - MUST be provided
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = fileCfg.SessionSecret
	}
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET required")
	}

	if len(cfg.AllowedOrigins) == 0 {
		if env := os.Getenv("ALLOWED_ORIGINS"); env != "" {
			for _, o := range strings.Split(env, ",") {
				if o = strings.TrimSpace(o); o != "" {
					cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
				}
			}
		} else {
			cfg.AllowedOrigins = fileCfg.AllowedOrigins
		}
	}

	if cfg.RateLimit == 0 {
		cfg.RateLimit = fileCfg.RateLimit
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 30
	}
	if cfg.RateWindowSecs == 0 {
		cfg.RateWindowSecs = fileCfg.RateWindowSecs
	}
	if cfg.RateWindowSecs == 0 {
		cfg.RateWindowSecs = 60
	}

	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = fileCfg.MetricsAddr
	}

	return cfg, nil
}
