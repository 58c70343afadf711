package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var execFormat string

var execCmd = &cobra.Command{
	Use:   "exec [json]",
	Short: "Run one memory command",
	Long: `Run a single memory command given as a JSON object and print the result
envelope. The command is read from stdin when no argument or "-" is given.

Examples:
  memfs exec '{"command":"view","path":"/memories"}'
  memfs exec '{"command":"create","path":"/memories/notes.md","file_text":"hello\n"}'
  echo '{"command":"delete","path":"/memories/notes.md"}' | memfs exec
  memfs exec --format text '{"command":"view","path":"/memories"}'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(execFormat); err != nil {
			return err
		}
		input, err := readCommandInput(cmd, args)
		if err != nil {
			return err
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		env := s.tool.Execute(cmd.Context(), input)
		if err := writeEnvelope(cmd.OutOrStdout(), env, execFormat); err != nil {
			return err
		}
		if !env.Success {
			return ErrCommandFailed
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(execCmd)

	execCmd.Flags().StringVarP(&execFormat, "format", "f", formatJSON, "Output format (json, text)")
}

func readCommandInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("error reading from stdin: %w", err)
	}
	input := strings.TrimSpace(string(data))
	if input == "" {
		return "", fmt.Errorf("no command given on stdin")
	}
	return input, nil
}
