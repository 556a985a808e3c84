package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
)

// mcpServerConfig is one entry in a desktop client's mcpServers map,
// matching the shape the teacher's own in-project .mcp.json writer uses
// (configureViaMCPJSON, cmd/amanmcp/cmd/init.go).
type mcpServerConfig struct {
	Type    string   `json:"type"`
	Command string   `json:"command"`
	Args    []string `json:"args"`
	Cwd     string   `json:"cwd"`
}

type desktopMCPConfig struct {
	MCPServers map[string]mcpServerConfig `json:"mcpServers"`
}

// newSetupMCPCmd creates the setup-mcp command: it registers codewell in
// an AI-agent desktop client's tool-discovery config, merging into the
// same mcpServers map shape the project-local .mcp.json writer uses
// rather than inventing a new manifest format (spec §4.L's "known
// desktop-client location").
func newSetupMCPCmd() *cobra.Command {
	var configPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "setup-mcp [path]",
		Short: "Register codewell with an AI-agent desktop client",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			return runSetupMCP(cmd, path, configPath, force)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Override the desktop client's config file path (defaults to the OS-appropriate location)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing codewell entry")
	return cmd
}

func runSetupMCP(cmd *cobra.Command, projectPath, configPath string, force bool) error {
	root, err := resolveProjectRoot(projectPath)
	if err != nil {
		return err
	}

	if configPath == "" {
		configPath, err = defaultDesktopClientConfigPath()
		if err != nil {
			return err
		}
	}

	exe, err := os.Executable()
	if err != nil {
		exe = "codewell"
	} else if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	cfg := desktopMCPConfig{MCPServers: make(map[string]mcpServerConfig)}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("setup-mcp: parse %s: %w", configPath, err)
		}
		if cfg.MCPServers == nil {
			cfg.MCPServers = make(map[string]mcpServerConfig)
		}
	}

	if _, exists := cfg.MCPServers["codewell"]; exists && !force {
		fmt.Fprintln(cmd.OutOrStdout(), "codewell is already registered in", configPath)
		return nil
	}

	cfg.MCPServers["codewell"] = mcpServerConfig{
		Type:    "stdio",
		Command: exe,
		Args:    []string{"mcp"},
		Cwd:     root,
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("setup-mcp: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("setup-mcp: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("setup-mcp: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "registered codewell in", configPath)
	return nil
}

// defaultDesktopClientConfigPath resolves Claude Desktop's config file
// location per OS. No example in the retrieval pack names this exact
// convention (Yakitrak-obsidian-cli/cmd/mcp.go documents the config shape
// but not a path; ternarybob-iter doesn't touch desktop clients at all),
// so this follows Claude Desktop's own documented per-OS layout.
func defaultDesktopClientConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("setup-mcp: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "Claude", "claude_desktop_config.json"), nil
	default:
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, "Claude", "claude_desktop_config.json"), nil
	}
}
