package cli

import (
	"github.com/deepnoodle-ai/memfs/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the memory tool over MCP on stdio",
	Long: `Serve the memory tool to an MCP client over stdin and stdout. Logs are
written to stderr.

Example client configuration:
  {"command": "memfs", "args": ["mcp", "--root", "/path/to/memories"]}`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		srv, err := mcp.NewServer(s.tool, mcp.ServerOptions{Logger: s.logger})
		if err != nil {
			return err
		}
		s.logger.Info("serving memory tool over stdio", "root", s.tool.Root(), "prefix", s.tool.MemoryDir())
		return mcp.ServeStdio(cmd.Context(), srv, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
