package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// maxCommandLine bounds one JSON command read by repl.
const maxCommandLine = 16 * 1024 * 1024

var replFormat string

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Run memory commands read as JSON lines from stdin",
	Long: `Read one JSON command per line from stdin and print one result envelope
per command. Blank lines are skipped. The loop ends at end of input.

Failed commands are reported in their envelope and do not stop the loop.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(replFormat); err != nil {
			return err
		}
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		scanner := bufio.NewScanner(cmd.InOrStdin())
		scanner.Buffer(make([]byte, 0, 64*1024), maxCommandLine)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return nil
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			env := s.tool.Execute(ctx, line)
			if err := writeEnvelope(out, env, replFormat); err != nil {
				return err
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("error reading commands: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replCmd)

	replCmd.Flags().StringVarP(&replFormat, "format", "f", formatJSON, "Output format (json, text)")
}
