// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Precedence: CLI flags, then environment variables, then the optional YAML
config file (-c path or CONFIG_FILE).

# Config Fields

  - Port: server listen port (default: 3324)
  - DatabaseURL: sqlite path or postgres connection string (required)
  - DatabaseType: "sqlite" (default) or "postgres"
  - SessionSecret: secret for session token HMAC (required)
  - AllowedOrigins: origins accepted by the CSRF guard
  - RateLimit / RateWindowSecs: mutation rate limit (default 30 per 60s)
  - MetricsAddr: metrics listener address; empty disables metrics

# Environment Variables

	PORT            → -p
	DATABASE_URL    → -d
	DATABASE_TYPE   → -t
	SESSION_SECRET  → --session-secret
	ALLOWED_ORIGINS → --origins
	METRICS_ADDR    → --metrics
	CONFIG_FILE     → -c
*/
package cliparse
