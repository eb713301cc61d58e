package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/helmdeck/internal/edit"
	"github.com/cameronsjo/helmdeck/internal/lock"
)

const webValuesText = "replicaCount: 2\nimage:\n  repository: nginx\n  tag: 1.25\nports:\n  - 80\n  - 443\n"

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// fakeTerminal makes values edit believe stdin is interactive.
func fakeTerminal(t *testing.T) {
	t.Helper()
	old := isTerminal
	isTerminal = func() bool { return true }
	t.Cleanup(func() { isTerminal = old })
}

// editorScript installs a shell script as $VISUAL that replaces the edited
// file with content.
func editorScript(t *testing.T, content string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("editor script needs a POSIX shell")
	}
	contentPath := writeTemp(t, "content.txt", content)
	script := writeTemp(t, "editor.sh", "#!/bin/sh\ncat '"+contentPath+"' > \"$1\"\n")
	require.NoError(t, os.Chmod(script, 0755))
	t.Setenv("VISUAL", script)
}

func TestValuesGetCmd(t *testing.T) {
	api := newFakeAPI(t)

	output, err := executeCmd(t, "values", "get", "apps/web")
	require.NoError(t, err)
	assert.Equal(t, webValuesText, output)
	assert.True(t, api.requested("GET /api/releases/apps/web/values"))
}

func TestValuesGetCmd_Quote(t *testing.T) {
	newFakeAPI(t)

	output, err := executeCmd(t, "values", "get", "apps/web", "--quote")
	require.NoError(t, err)
	assert.Contains(t, output, "  tag: \"1.25\"\n")
	assert.Contains(t, output, "replicaCount: 2\n")
}

func TestValuesGetCmd_OutputFile(t *testing.T) {
	newFakeAPI(t)
	path := filepath.Join(t.TempDir(), "out", "web.txt")

	output, err := executeCmd(t, "values", "get", "apps/web", "-o", path)
	require.NoError(t, err)
	assert.Empty(t, output)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, webValuesText, string(data))
}

func TestValuesSetCmd(t *testing.T) {
	api := newFakeAPI(t)
	path := writeTemp(t, "values.txt", "replicaCount: 3\nimage:\n  repository: nginx\n  tag: \"1.25\"\n")

	_, err := executeCmd(t, "values", "set", "apps/web", "-f", path)
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"values":{"replicaCount":3,"image":{"repository":"nginx","tag":"1.25"}}}`,
		string(api.body("PUT /api/releases/apps/web/values")))
	assert.Equal(t, 4, api.release("apps/web").Revision)
}

func TestValuesSetCmd_Stdin(t *testing.T) {
	api := newFakeAPI(t)

	_, err := executeCmdWithInput(t, "replicaCount: 5\n", "values", "set", "apps/web")
	require.NoError(t, err)
	assert.JSONEq(t, `{"values":{"replicaCount":5}}`, string(api.body("PUT /api/releases/apps/web/values")))
}

func TestValuesSetCmd_Unchanged(t *testing.T) {
	api := newFakeAPI(t)
	// Same document with keys reordered and the tag quoted.
	path := writeTemp(t, "values.txt", "ports:\n  - 80\n  - 443\nimage:\n  tag: \"1.25\"\n  repository: nginx\nreplicaCount: 2\n")

	_, err := executeCmd(t, "values", "set", "apps/web", "-f", path)
	require.NoError(t, err)
	assert.False(t, api.requested("PUT /api/releases/apps/web/values"))
}

func TestValuesSetCmd_NoRegistry(t *testing.T) {
	api := newFakeAPI(t)
	path := writeTemp(t, "values.txt", "auth:\n  enabled: true\n")

	_, err := executeCmd(t, "values", "set", "infra/cache", "-f", path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, edit.ErrNoRegistry))
	assert.False(t, api.requested("PUT /api/releases/infra/cache/values"))

	_, err = executeCmd(t, "values", "set", "infra/cache", "-f", path, "--allow-no-registry")
	require.NoError(t, err)
	assert.JSONEq(t, `{"values":{"auth":{"enabled":true}}}`, string(api.body("PUT /api/releases/infra/cache/values")))
}

func TestValuesSetCmd_Strict(t *testing.T) {
	api := newFakeAPI(t)
	path := writeTemp(t, "values.txt", "replicaCount: 2\nports: [80, 443]\n")

	_, err := executeCmd(t, "values", "set", "apps/web", "-f", path, "--strict")
	require.Error(t, err)
	assert.True(t, errors.Is(err, edit.ErrAmbiguous))
	assert.Contains(t, err.Error(), "ports")
	assert.False(t, api.requested("PUT /api/releases/apps/web/values"))

	// Without --strict the flow string is sent as written.
	_, err = executeCmd(t, "values", "set", "apps/web", "-f", path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"values":{"replicaCount":2,"ports":"[80, 443]"}}`, string(api.body("PUT /api/releases/apps/web/values")))
}

func TestValuesSetCmd_Locked(t *testing.T) {
	api := newFakeAPI(t)
	held := lock.New(os.Getenv("HELMDECK_STATE_DIR"), "apps/web")
	require.NoError(t, held.Acquire())
	defer held.Release()

	_, err := executeCmdWithInput(t, "replicaCount: 9\n", "values", "set", "apps/web")
	require.Error(t, err)
	assert.True(t, errors.Is(err, lock.ErrLocked))
	assert.False(t, api.requested("GET /api/releases/apps/web"))
}

func TestValuesEditCmd_NeedsTerminal(t *testing.T) {
	old := isTerminal
	isTerminal = func() bool { return false }
	defer func() { isTerminal = old }()
	api := newFakeAPI(t)

	_, err := executeCmd(t, "values", "edit", "apps/web")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs a terminal")
	assert.Empty(t, api.requests)
}

func TestValuesEditCmd_File(t *testing.T) {
	api := newFakeAPI(t)
	path := writeTemp(t, "values.txt", "replicaCount: 6\n")

	_, err := executeCmd(t, "values", "edit", "apps/web", "--file", path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"values":{"replicaCount":6}}`, string(api.body("PUT /api/releases/apps/web/values")))
}

func TestValuesEditCmd_Editor(t *testing.T) {
	fakeTerminal(t)
	api := newFakeAPI(t)
	editorScript(t, "replicaCount: 2\nimage:\n  repository: nginx\n  tag: \"1.26\"\nports:\n  - 80\n")

	_, err := executeCmd(t, "values", "edit", "apps/web")
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"values":{"replicaCount":2,"image":{"repository":"nginx","tag":"1.26"},"ports":[80]}}`,
		string(api.body("PUT /api/releases/apps/web/values")))

	// The lock is released once the command returns.
	l := lock.New(os.Getenv("HELMDECK_STATE_DIR"), "apps/web")
	require.NoError(t, l.Acquire())
	require.NoError(t, l.Release())
}

func TestValuesEditCmd_EditorNoChanges(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs the true command")
	}
	fakeTerminal(t)
	api := newFakeAPI(t)
	t.Setenv("VISUAL", "true")

	_, err := executeCmd(t, "values", "edit", "apps/web")
	require.NoError(t, err)
	assert.True(t, api.requested("GET /api/releases/apps/web/values"))
	assert.False(t, api.requested("PUT /api/releases/apps/web/values"))
}

func TestValuesEditCmd_EditorReorderedKeys(t *testing.T) {
	fakeTerminal(t)
	api := newFakeAPI(t)
	editorScript(t, "ports:\n  - 80\n  - 443\nimage:\n  tag: \"1.25\"\n  repository: nginx\nreplicaCount: 2\n")

	_, err := executeCmd(t, "values", "edit", "apps/web")
	require.NoError(t, err)
	assert.False(t, api.requested("PUT /api/releases/apps/web/values"))
	assert.Contains(t, valuesEditCmd.Long, "only reorders keys")
}

func TestValuesEditCmd_EditorFails(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs the false command")
	}
	fakeTerminal(t)
	api := newFakeAPI(t)
	t.Setenv("VISUAL", "false")

	_, err := executeCmd(t, "values", "edit", "apps/web")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run editor")
	assert.False(t, api.requested("PUT /api/releases/apps/web/values"))
}

func TestValuesEditCmd_NoRegistry(t *testing.T) {
	fakeTerminal(t)
	newFakeAPI(t)
	t.Setenv("VISUAL", "true")

	_, err := executeCmd(t, "values", "edit", "infra/cache")
	require.Error(t, err)
	assert.True(t, errors.Is(err, edit.ErrNoRegistry))
}

func TestValuesEncodeCmd(t *testing.T) {
	output, err := executeCmdWithInput(t,
		`{"name":"web","enabled":"true","ports":[80],"notes":"a\nb"}`,
		"values", "encode")
	require.NoError(t, err)
	assert.Equal(t, "name: web\nenabled: true\nports:\n  - 80\nnotes: |\n  a\n  b\n", output)

	output, err = executeCmdWithInput(t, `{"enabled":"true"}`, "values", "encode", "--quote")
	require.NoError(t, err)
	assert.Equal(t, "enabled: \"true\"\n", output)
}

func TestValuesEncodeCmd_InvalidJSON(t *testing.T) {
	_, err := executeCmdWithInput(t, `[1, 2]`, "values", "encode")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse JSON")
}

func TestValuesDecodeCmd(t *testing.T) {
	path := writeTemp(t, "values.txt", "b: 1\na:\n  - x\n  - true\n")

	output, err := executeCmd(t, "values", "decode", path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"b\": 1,\n  \"a\": [\n    \"x\",\n    true\n  ]\n}\n", output)
}

func TestValuesDecodeCmd_OutputFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "values.json")

	_, err := executeCmdWithInput(t, "a: 1\n", "values", "decode", "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))
}

func TestValuesLintCmd(t *testing.T) {
	path := writeTemp(t, "clean.txt", webValuesText)
	output, err := executeCmd(t, "values", "lint", path)
	require.NoError(t, err)
	assert.Empty(t, output)

	output, err = executeCmdWithInput(t, "mask: 0x10\nports: [80]\n", "values", "lint")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 finding(s)")
	assert.Contains(t, output, "line 1: mask:")
	assert.Contains(t, output, "line 2: ports:")
}
