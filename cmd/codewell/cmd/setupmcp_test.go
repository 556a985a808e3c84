package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSetupMCP_WritesNewConfig(t *testing.T) {
	projectDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "main.go"), []byte("package main\n"), 0o644))
	configPath := filepath.Join(t.TempDir(), "claude_desktop_config.json")

	cmd := newSetupMCPCmd()
	cmd.SetArgs([]string{projectDir, "--config", configPath})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)

	var cfg desktopMCPConfig
	require.NoError(t, json.Unmarshal(data, &cfg))
	entry, ok := cfg.MCPServers["codewell"]
	require.True(t, ok)
	assert.Equal(t, []string{"mcp"}, entry.Args)
}

func TestRunSetupMCP_SkipsExistingWithoutForce(t *testing.T) {
	projectDir := t.TempDir()
	configPath := filepath.Join(t.TempDir(), "config.json")
	existing := desktopMCPConfig{MCPServers: map[string]mcpServerConfig{
		"codewell": {Type: "stdio", Command: "/old/path", Args: []string{"mcp"}, Cwd: "/old"},
	}}
	data, err := json.Marshal(existing)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0o644))

	cmd := newSetupMCPCmd()
	cmd.SetArgs([]string{projectDir, "--config", configPath})
	require.NoError(t, cmd.Execute())

	after, err := os.ReadFile(configPath)
	require.NoError(t, err)
	var cfg desktopMCPConfig
	require.NoError(t, json.Unmarshal(after, &cfg))
	assert.Equal(t, "/old/path", cfg.MCPServers["codewell"].Command)
}
