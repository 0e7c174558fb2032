// Package config loads ferry's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/ferry/config.toml
//  3. If the file doesn't exist, use Default()
//  4. If the file exists but fields are missing or blank, keep the defaults
//
// # TOML Format
//
//	server_url      = "http://localhost:8000"
//	check_mode      = "status"   # or "head"
//	auto_poll       = true
//	poll_interval   = 2          # seconds
//	poll_timeout    = 600        # seconds
//	request_timeout = 30         # seconds
//	download_dir    = "~/Downloads/ferry"
//	log_dir         = "~/.local/share/ferry/logs"
//	log_level       = "info"
//	metrics_bind    = ""         # empty disables /metrics
//
// Every field is optional. Tilde expansion is applied to download_dir and
// log_dir. An unknown check_mode is rejected so a typo cannot silently switch
// the completion check.
//
// # Error Handling
//
// Load returns errors for path expansion failures, unreadable files (other
// than os.ErrNotExist), TOML syntax errors, and invalid check_mode values.
// A missing file is not an error.
package config
