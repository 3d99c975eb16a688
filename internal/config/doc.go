// Package config loads and validates runtime settings.
//
// Sources are layered, later ones overriding earlier ones:
//
//	defaults < config file (TOML or YAML) < UNDOREDO_* environment variables
//
// Each source is read into a nested map (see package loader), the maps
// are deep-merged and the result is decoded into Config with mapstructure.
// Durations accept Go duration strings ("250ms") and merge modes accept
// "disable", "ends" or "all".
//
// # Sub-packages
//
//   - loader: TOML, YAML and environment sources plus map helpers
//   - watcher: fsnotify-based change notification for live reload
//
// # Keys
//
//	history.max_actions         int       1000
//	history.merge_window        duration  0 (unlimited)
//	history.default_merge_mode  string    "disable"
//	history.strict              bool      false
//	logging.level               string    "info"
//	logging.format              string    "text"
//	lua.timeout                 duration  "5s" (0 disables)
//	metrics.addr                string    "" (disabled)
//	metrics.namespace           string    "undoredo"
package config
