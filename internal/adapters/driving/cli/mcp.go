package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qutils/internal/adapters/driving/mcp"
	"github.com/custodia-labs/qutils/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can read and
write the cache and settings stores.

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead.

Examples:
  # Stdio mode (default)
  qutils mcp serve

  # HTTP mode
  qutils mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "qutils": {
        "command": "/path/to/qutils",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

// mcpPorts opens the stores served over MCP. A settings store that cannot
// be opened only disables the settings tools.
func mcpPorts() (*mcp.Ports, error) {
	cache, err := openCache()
	if err != nil {
		return nil, err
	}

	ports := &mcp.Ports{Cache: cache, Provider: storeProvider}
	settings, err := openSettings()
	if err != nil {
		logger.Warn("settings tools disabled: %v", err)
		return ports, nil
	}
	ports.Settings = settings
	return ports, nil
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports, err := mcpPorts()
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
