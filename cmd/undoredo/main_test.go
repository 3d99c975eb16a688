package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "undoredo dev")
}

func TestConfigCommand(t *testing.T) {
	path := writeFile(t, "undoredo.toml", "[history]\nmax_actions = 25\n")

	out, err := execute(t, "config", "--config", path, "--log-level", "debug")
	require.NoError(t, err)

	var got map[string]map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, 25, got["history"]["max_actions"])
	assert.Equal(t, "debug", got["logging"]["level"])

	_, err = execute(t, "config", "--log-level", "loud")
	assert.Error(t, err)
}

func TestRunCommandDumpsHistory(t *testing.T) {
	script := writeFile(t, "edit.lua", `
local doc = objects.new({ text = "" })
for _, word in ipairs({ "a", "b", "c" }) do
	history.create_action("type " .. word)
	history.add_do_property(doc, "text", objects.get(doc).text .. word)
	history.add_undo_property(doc, "text", objects.get(doc).text)
	history.commit_action()
end
history.undo()
`)

	out, err := execute(t, "run", "--dump", "json", script)
	require.NoError(t, err)
	assert.Contains(t, out, `"type a"`)
	assert.Contains(t, out, `"type c"`)
}

func TestRunCommandErrors(t *testing.T) {
	_, err := execute(t, "run")
	assert.Error(t, err, "a script is required")

	script := writeFile(t, "ok.lua", "local x = 1\n")
	_, err = execute(t, "run", "--dump", "xml", script)
	assert.Error(t, err)

	bad := writeFile(t, "bad.lua", "history.undo(\n")
	_, err = execute(t, "run", bad)
	assert.Error(t, err)
}
