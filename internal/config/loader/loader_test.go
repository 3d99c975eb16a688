package loader

import (
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m.files[path]; ok {
		return &memFileInfo{name: path}, nil
	}
	return nil, fs.ErrNotExist
}

type memFileInfo struct {
	name string
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return 0 }
func (f *memFileInfo) Mode() fs.FileMode  { return 0o644 }
func (f *memFileInfo) ModTime() time.Time { return time.Now() }
func (f *memFileInfo) IsDir() bool        { return false }
func (f *memFileInfo) Sys() any           { return nil }

func TestTOMLLoader(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/undoredo.toml", `
[history]
max_actions = 50
merge_window = "250ms"
default_merge_mode = "ends"

[logging]
level = "debug"
`)

	cfg, err := NewTOMLLoaderWithFS(memfs, "/undoredo.toml").Load()
	require.NoError(t, err)

	v, ok := GetByPath(cfg, "history.max_actions")
	require.True(t, ok)
	assert.Equal(t, int64(50), v)

	v, ok = GetByPath(cfg, "logging.level")
	require.True(t, ok)
	assert.Equal(t, "debug", v)
}

func TestTOMLLoaderMissingFile(t *testing.T) {
	cfg, err := NewTOMLLoaderWithFS(NewMemFS(), "/nope.toml").Load()
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestTOMLParseError(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.toml", "[history\nmax_actions = 1\n")

	_, err := NewTOMLLoaderWithFS(memfs, "/bad.toml").Load()
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "/bad.toml", pe.Path)
	assert.Positive(t, pe.Line)
	assert.Contains(t, pe.Error(), "parse error in /bad.toml")
}

func TestYAMLLoader(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/undoredo.yaml", `
history:
  max_actions: 20
  strict: true
metrics:
  addr: ":9090"
`)

	cfg, err := NewYAMLLoaderWithFS(memfs, "/undoredo.yaml").Load()
	require.NoError(t, err)

	v, ok := GetByPath(cfg, "history.max_actions")
	require.True(t, ok)
	assert.Equal(t, 20, v)

	v, ok = GetByPath(cfg, "history.strict")
	require.True(t, ok)
	assert.Equal(t, true, v)

	v, ok = GetByPath(cfg, "metrics.addr")
	require.True(t, ok)
	assert.Equal(t, ":9090", v)
}

func TestYAMLLoaderEmptyAndInvalid(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/empty.yaml", "")
	memfs.AddFile("/bad.yaml", "history: [unclosed\n")

	cfg, err := NewYAMLLoaderWithFS(memfs, "/empty.yaml").Load()
	require.NoError(t, err)
	assert.Empty(t, cfg)

	_, err = NewYAMLLoaderWithFS(memfs, "/bad.yaml").Load()
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "/bad.yaml", pe.Path)
}

func TestForPath(t *testing.T) {
	memfs := NewMemFS()

	l, err := ForPath(memfs, "/a.toml")
	require.NoError(t, err)
	assert.IsType(t, &TOMLLoader{}, l)

	for _, p := range []string{"/a.yaml", "/a.YML"} {
		l, err = ForPath(memfs, p)
		require.NoError(t, err)
		assert.IsType(t, &YAMLLoader{}, l)
	}

	_, err = ForPath(memfs, "/a.json")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestEnvLoader(t *testing.T) {
	env := []string{
		"UNDOREDO_HISTORY_MAX_ACTIONS=5",
		"UNDOREDO_LUA_TIMEOUT=2s",
		"UNDOREDO_LOG_LEVEL=debug",
		"UNDOREDO_LOGGING_LEVEL=error",
		"UNDOREDO_CONFIG=/etc/undoredo.toml",
		"OTHER_HISTORY_MAX_ACTIONS=9",
		"UNDOREDO_METRICS_ADDR=",
	}
	l := NewEnvLoader("UNDOREDO_").WithEnviron(func() []string { return env })

	cfg, err := l.Load()
	require.NoError(t, err)

	want := map[string]any{
		"history": map[string]any{"max_actions": "5"},
		"lua":     map[string]any{"timeout": "2s"},
		"logging": map[string]any{"level": "debug"},
		"metrics": map[string]any{"addr": ""},
	}
	assert.Equal(t, want, cfg, "aliases override generic names; names without a key are ignored")
}

func TestEnvLoaderCustomMapping(t *testing.T) {
	l := NewEnvLoader("X_").WithEnviron(func() []string { return []string{"X_DEPTH=3"} })
	l.AddMapping("X_DEPTH", "history.max_actions")

	cfg, err := l.Load()
	require.NoError(t, err)
	v, ok := GetByPath(cfg, "history.max_actions")
	require.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"history": map[string]any{"max_actions": 10, "strict": false},
		"logging": map[string]any{"level": "info"},
	}
	src := map[string]any{
		"history": map[string]any{"max_actions": 20},
		"lua":     map[string]any{"timeout": "1s"},
	}

	got := DeepMerge(dst, src)
	assert.Equal(t, map[string]any{
		"history": map[string]any{"max_actions": 20, "strict": false},
		"logging": map[string]any{"level": "info"},
		"lua":     map[string]any{"timeout": "1s"},
	}, got)

	src["lua"].(map[string]any)["timeout"] = "9s"
	v, _ := GetByPath(got, "lua.timeout")
	assert.Equal(t, "1s", v, "merged maps are copies")

	assert.Equal(t, map[string]any{"a": 1}, DeepMerge(nil, map[string]any{"a": 1}))
}

func TestPathHelpers(t *testing.T) {
	data := map[string]any{}
	SetByPath(data, "a.b.c", 1)
	SetByPath(data, "a.d", "x")

	v, ok := GetByPath(data, "a.b.c")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = GetByPath(data, "a.b.c.d")
	assert.False(t, ok)
	_, ok = GetByPath(data, "z")
	assert.False(t, ok)

	assert.Equal(t, map[string]any{"a.b.c": 1, "a.d": "x"}, Flatten(data))
}

func TestDiff(t *testing.T) {
	a := map[string]any{
		"history": map[string]any{"max_actions": 10, "strict": false},
		"logging": map[string]any{"level": "info"},
	}
	b := map[string]any{
		"history": map[string]any{"max_actions": int64(10), "strict": true},
		"lua":     map[string]any{"timeout": "1s"},
	}

	assert.Equal(t, []string{"history.strict", "logging.level", "lua.timeout"}, Diff(a, b))
	assert.Empty(t, Diff(a, a))
}
