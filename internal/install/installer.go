// Package install patches MCP client configs so AI tools on the
// operator's machine can spawn the renovabot stdio server.
package install

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
)

// ClientConfig is a known location of an MCP client settings file.
type ClientConfig struct {
	Name string
	Path string
}

// KnownClients returns candidate config locations. Only macOS paths
// for now.
func KnownClients() []ClientConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	if runtime.GOOS != "darwin" {
		return nil
	}

	return []ClientConfig{
		{"Claude Desktop", filepath.Join(home, "Library/Application Support/Claude/claude_desktop_config.json")},
		{"Cursor", filepath.Join(home, ".cursor/mcp.json")},
		{"Claude Code CLI", filepath.Join(home, ".claude.json")},
		{"Cline (VS Code)", filepath.Join(home, "Library/Application Support/Code/User/globalStorage/saoudrizwan.claude-dev/settings/cline_mcp_settings.json")},
		{"Kilo Code", filepath.Join(home, ".kiro/settings/mcp.json")},
		{"VS Code (Generic MCP)", filepath.Join(home, "Library/Application Support/Code/User/mcp.json")},
	}
}

type mcpConfig struct {
	MCPServers map[string]serverEntry `json:"mcpServers"`
}

type serverEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Install registers the renovabot MCP server in every detected client
// config. env carries the database connection variables the binary
// needs when the client spawns it.
func Install(binaryPath string, env map[string]string) error {
	patched := 0
	for _, client := range KnownClients() {
		if _, err := os.Stat(client.Path); os.IsNotExist(err) {
			continue
		}

		if err := patchConfig(client.Path, binaryPath, env); err != nil {
			log.Printf("[install] %s: %v", client.Name, err)
			continue
		}
		fmt.Printf("✅ Configured %s\n", client.Name)
		patched++
	}

	if patched == 0 {
		return fmt.Errorf("no MCP client configs found; install Cursor, Claude Desktop, Claude Code, Cline or Kilo Code first")
	}
	return nil
}

func patchConfig(path, binaryPath string, env map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Files may be empty or carry extra keys; only the mcpServers map
	// is read and rewritten.
	var cfg mcpConfig
	if err := json.Unmarshal(data, &cfg); err != nil || cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]serverEntry)
	}

	cfg.MCPServers["renovabot"] = serverEntry{
		Command: binaryPath,
		Env:     env,
	}

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}
