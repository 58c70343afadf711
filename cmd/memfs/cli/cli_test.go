package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deepnoodle-ai/memfs"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with fresh flag values and returns what
// was written to stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	out, _, err := runCLIStreams(t, stdin, args...)
	return out, err
}

// runCLIStreams is runCLI that also returns the error stream.
func runCLIStreams(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	configPath, rootOverride, logLevel, metricsAddr = "", "", "", ""
	execFormat, replFormat = formatJSON, formatJSON
	watchJSON = false

	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func decodeEnvelopes(t *testing.T, output string) []memfs.Envelope {
	t.Helper()
	var envelopes []memfs.Envelope
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		var env memfs.Envelope
		require.NoError(t, json.Unmarshal([]byte(line), &env), line)
		envelopes = append(envelopes, env)
	}
	return envelopes
}

func TestExec(t *testing.T) {
	root := t.TempDir()

	t.Run("create from argument", func(t *testing.T) {
		out, err := runCLI(t, "", "exec", "--root", root,
			`{"command":"create","path":"/memories/notes.md","file_text":"hello\n"}`)
		require.NoError(t, err)
		envs := decodeEnvelopes(t, out)
		require.Len(t, envs, 1)
		require.True(t, envs[0].Success)

		data, err := os.ReadFile(filepath.Join(root, "notes.md"))
		require.NoError(t, err)
		require.Equal(t, "hello\n", string(data))
	})

	t.Run("view from stdin", func(t *testing.T) {
		out, err := runCLI(t, `{"command":"view","path":"/memories"}`, "exec", "--root", root)
		require.NoError(t, err)
		envs := decodeEnvelopes(t, out)
		require.True(t, envs[0].Success)
		require.Equal(t, []memfs.Entry{{Name: "notes.md", Type: memfs.EntryTypeFile}}, envs[0].Listing)
	})

	t.Run("error envelope", func(t *testing.T) {
		out, err := runCLI(t, "", "exec", "--root", root, `{"command":"view","path":"/memories/../../etc/passwd"}`)
		require.ErrorIs(t, err, ErrCommandFailed)
		envs := decodeEnvelopes(t, out)
		require.False(t, envs[0].Success)
		require.Equal(t, memfs.KindPathEscape, envs[0].ErrorKind)
	})

	t.Run("text format", func(t *testing.T) {
		out, err := runCLI(t, "", "exec", "--root", root, "--format", "text",
			`{"command":"view","path":"/memories/notes.md"}`)
		require.NoError(t, err)
		require.Contains(t, out, "hello")
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := runCLI(t, "", "exec", "--root", root, "--format", "yaml", `{"command":"view","path":"/memories"}`)
		require.ErrorContains(t, err, "unsupported format")
	})

	t.Run("empty stdin", func(t *testing.T) {
		_, err := runCLI(t, "  \n", "exec", "--root", root)
		require.ErrorContains(t, err, "no command given")
	})
}

func TestExec_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "store")
	configFile := filepath.Join(dir, "memfs.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("root: "+root+"\nprefix: /notes\n"), 0o644))

	out, err := runCLI(t, "", "exec", "--config", configFile,
		`{"command":"create","path":"/notes/a.md","file_text":"x"}`)
	require.NoError(t, err)
	require.True(t, decodeEnvelopes(t, out)[0].Success)
	require.FileExists(t, filepath.Join(root, "a.md"))
}

func TestExec_ConfigDirectory(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "store")
	configDir := filepath.Join(dir, "conf.d")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "01-root.toml"), []byte("root = '"+root+"'\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "02-prefix.yaml"), []byte("prefix: /notes\n"), 0o644))

	out, err := runCLI(t, "", "exec", "--config", configDir,
		`{"command":"create","path":"/notes/a.md","file_text":"x"}`)
	require.NoError(t, err)
	require.True(t, decodeEnvelopes(t, out)[0].Success)
	require.FileExists(t, filepath.Join(root, "a.md"))

	require.Contains(t, rootCmd.Long, "TOML")
	require.Contains(t, rootCmd.PersistentFlags().Lookup("config").Usage, "directory")
}

func TestExec_InvalidLogLevel(t *testing.T) {
	_, err := runCLI(t, "", "exec", "--root", t.TempDir(), "--log-level", "loud", `{"command":"view","path":"/memories"}`)
	require.Error(t, err)
	require.Equal(t, memfs.KindConfigurationError, memfs.KindOf(err))
}

func TestExec_LogsToStderr(t *testing.T) {
	out, errOut, err := runCLIStreams(t, "", "exec", "--root", t.TempDir(), "--log-level", "debug",
		`{"command":"view","path":"/memories"}`)
	require.NoError(t, err)
	require.Len(t, decodeEnvelopes(t, out), 1)
	require.Contains(t, errOut, "memory command succeeded")
	require.Contains(t, errOut, "command=view")
	require.NotContains(t, out, "memory command succeeded")
}

func TestRunCLI_ResetsWatchFlag(t *testing.T) {
	watchJSON = true
	_, err := runCLI(t, "", "exec", "--root", t.TempDir(), `{"command":"view","path":"/memories"}`)
	require.NoError(t, err)
	require.False(t, watchJSON)
}

func TestRepl(t *testing.T) {
	root := t.TempDir()
	input := strings.Join([]string{
		`{"command":"create","path":"/memories/a.md","file_text":"one\ntwo\n"}`,
		``,
		`{"command":"str_replace","path":"/memories/a.md","old_str":"missing","new_str":"x"}`,
		`{"command":"insert","path":"/memories/a.md","insert_line":2,"insert_text":"three\n"}`,
		`not json`,
		`{"command":"view","path":"/memories/a.md"}`,
	}, "\n")

	out, err := runCLI(t, input, "repl", "--root", root)
	require.NoError(t, err)

	envs := decodeEnvelopes(t, out)
	require.Len(t, envs, 5)
	require.True(t, envs[0].Success)
	require.Equal(t, memfs.KindNoMatch, envs[1].ErrorKind)
	require.True(t, envs[2].Success)
	require.Equal(t, memfs.KindInvalidArguments, envs[3].ErrorKind)
	require.True(t, envs[4].Success)
	require.Contains(t, envs[4].Output, "three")

	data, err := os.ReadFile(filepath.Join(root, "a.md"))
	require.NoError(t, err)
	require.Equal(t, "one\ntwo\nthree\n", string(data))
}

func TestRenderEnvelope(t *testing.T) {
	failed := renderEnvelope(&memfs.Envelope{ErrorKind: memfs.KindNotFound, Message: "missing"})
	require.Contains(t, failed, "NotFound")
	require.Contains(t, failed, "missing")

	listing := renderListing([]memfs.Entry{
		{Name: "a.md", Type: memfs.EntryTypeFile},
		{Name: "projects", Type: memfs.EntryTypeDirectory},
	})
	lines := strings.Split(strings.TrimSpace(listing), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[1], "projects/")

	require.Contains(t, renderListing(nil), "(empty)")
}

func TestValidateFormat(t *testing.T) {
	require.NoError(t, validateFormat("json"))
	require.NoError(t, validateFormat("text"))
	require.Error(t, validateFormat("xml"))
}
