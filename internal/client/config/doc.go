// Package config loads runtime configuration for the groupshare CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment: a .env file in the working directory (joho/godotenv),
//     then GROUPSHARE_API_URL, GROUPSHARE_POLL_INTERVAL, GROUPSHARE_SESSION_TTL,
//     GROUPSHARE_REQUEST_TIMEOUT, GROUPSHARE_DB_PATH and GROUPSHARE_LOG_LEVEL
//     (LOG_LEVEL also works).
//  3. Optional JSON file selected via flags: -c or -config.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend API
//	-i int      poll interval (seconds)
//	-d string   local cache database path
//	-l string   log level
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds:
//
//	{
//	  "api_base_url": "http://127.0.0.1:8080",
//	  "poll_interval": "3s",
//	  "session_ttl": "10m",
//	  "request_timeout": "10s",
//	  "db_path": "groupshare.db",
//	  "log_level": "info"
//	}
package config
