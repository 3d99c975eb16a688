package loader

import (
	"os"
	"sort"
	"strings"
)

// EnvLoader loads configuration from environment variables.
//
// UNDOREDO_HISTORY_MAX_ACTIONS maps to history.max_actions: the first
// segment after the prefix names the section and the rest, joined by
// underscores, names the key. Values are kept as strings; decoding
// converts them to the target field type.
type EnvLoader struct {
	prefix  string            // e.g. "UNDOREDO_"
	mapping map[string]string // env var -> config path
	environ func() []string
}

// NewEnvLoader creates an environment loader. The prefix should include
// the trailing underscore.
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(prefix),
		environ: os.Environ,
	}
}

// defaultEnvMapping returns short aliases for frequently set keys.
func defaultEnvMapping(prefix string) map[string]string {
	return map[string]string{
		prefix + "LOG_LEVEL":    "logging.level",
		prefix + "LOG_FORMAT":   "logging.format",
		prefix + "MAX_ACTIONS":  "history.max_actions",
		prefix + "METRICS_ADDR": "metrics.addr",
	}
}

// WithEnviron replaces the environment source. Used by tests.
func (l *EnvLoader) WithEnviron(environ func() []string) *EnvLoader {
	if environ != nil {
		l.environ = environ
	}
	return l
}

// AddMapping adds an explicit env var to config path mapping.
func (l *EnvLoader) AddMapping(envVar, configPath string) {
	if l.mapping == nil {
		l.mapping = make(map[string]string)
	}
	l.mapping[envVar] = configPath
}

// Load reads the environment and returns a configuration map. Empty
// values count as set.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	env := l.environ()
	sort.Strings(env)

	// Generic names first so explicit aliases win.
	var aliased [][2]string
	for _, kv := range env {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		if path, ok := l.mapping[name]; ok {
			aliased = append(aliased, [2]string{path, value})
			continue
		}
		if path := l.envToPath(name); path != "" {
			SetByPath(config, path, value)
		}
	}
	for _, a := range aliased {
		SetByPath(config, a[0], a[1])
	}

	return config, nil
}

// envToPath converts UNDOREDO_HISTORY_MAX_ACTIONS to history.max_actions.
// Names with no key part map to "".
func (l *EnvLoader) envToPath(env string) string {
	name := strings.ToLower(strings.TrimPrefix(env, l.prefix))
	section, key, ok := strings.Cut(name, "_")
	if !ok || section == "" || key == "" {
		return ""
	}
	return section + "." + key
}
