package ansible

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	model "ansible-webui/datamodel/service-model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTool writes an executable shell script that stands in for ansible-playbook.
func fakeTool(t *testing.T, body string, mode os.FileMode) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "ansible-playbook")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), mode))
	return path
}

func newProcessClient(t *testing.T, binary string, timeout time.Duration) *Client {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.yml"), []byte("- hosts: all\n"), 0644))
	return NewClient(Options{Binary: binary, WorkDir: dir, Timeout: timeout})
}

func TestProcess_ExitCodeAndStderr(t *testing.T) {
	tool := fakeTool(t, "echo \"ran $@\"\necho warn >&2\nexit 2\n", 0755)
	c := newProcessClient(t, tool, time.Minute)

	res := c.Execute(context.Background(), model.ExecutionRequest{TargetHosts: "web01", PlaybookPath: "site.yml"})

	assert.True(t, res.IsError)
	assert.Equal(t, 2, res.ExitCode)
	assert.Equal(t, "ran -i web01 site.yml\n\n--- STDERR ---\nwarn\n\n\n[Process exited with code 2]", res.OutputText)
}

func TestProcess_Success(t *testing.T) {
	tool := fakeTool(t, "echo ok\n", 0755)
	c := newProcessClient(t, tool, time.Minute)

	res := c.Execute(context.Background(), model.ExecutionRequest{PlaybookPath: "site.yml"})

	assert.False(t, res.IsError)
	assert.Equal(t, "ok\n\n\n[Process completed successfully]", res.OutputText)
}

func TestProcess_RunsInWorkDir(t *testing.T) {
	tool := fakeTool(t, "test -f site.yml || exit 9\n", 0755)
	c := newProcessClient(t, tool, time.Minute)

	res := c.Execute(context.Background(), model.ExecutionRequest{PlaybookPath: "site.yml"})

	assert.False(t, res.IsError, res.OutputText)
}

func TestProcess_ArgumentsAreNotShellInterpreted(t *testing.T) {
	tool := fakeTool(t, "for a in \"$@\"; do echo \"[$a]\"; done\n", 0755)
	c := newProcessClient(t, tool, time.Minute)

	res := c.Execute(context.Background(), model.ExecutionRequest{TargetHosts: "web01;echo pwned", PlaybookPath: "site.yml"})

	assert.Contains(t, res.OutputText, "[web01;echo pwned]\n")
	assert.NotContains(t, res.OutputText, "\npwned")
}

func TestProcess_Timeout(t *testing.T) {
	tool := fakeTool(t, "echo partial\nexec sleep 10\n", 0755)
	c := newProcessClient(t, tool, 200*time.Millisecond)

	start := time.Now()
	res := c.Execute(context.Background(), model.ExecutionRequest{PlaybookPath: "site.yml"})

	assert.Less(t, time.Since(start), 8*time.Second)
	assert.Equal(t, model.KindTimeout, res.Kind)
	assert.Equal(t, "Error: Playbook execution timed out (exceeded 200ms).", res.OutputText)
}

func TestProcess_BinaryMissingFromPath(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	c := newProcessClient(t, DefaultBinary, time.Minute)

	res := c.Execute(context.Background(), model.ExecutionRequest{PlaybookPath: "site.yml"})

	assert.Equal(t, model.KindToolNotInstalled, res.Kind)
	assert.Equal(t, "Error: 'ansible-playbook' command not found. Please ensure Ansible is installed.", res.OutputText)
}

func TestProcess_BinaryAbsolutePathMissing(t *testing.T) {
	c := newProcessClient(t, filepath.Join(t.TempDir(), "bin", "ansible-playbook"), time.Minute)

	res := c.Execute(context.Background(), model.ExecutionRequest{PlaybookPath: "site.yml"})

	assert.Equal(t, model.KindToolNotInstalled, res.Kind)
}

func TestProcess_BinaryNotExecutable(t *testing.T) {
	tool := fakeTool(t, "echo never\n", 0644)
	c := newProcessClient(t, tool, time.Minute)

	res := c.Execute(context.Background(), model.ExecutionRequest{PlaybookPath: "site.yml"})

	assert.Equal(t, model.KindToolNotInstalled, res.Kind)
}
