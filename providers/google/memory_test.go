package google

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/deepnoodle-ai/memfs/toolkit"
	"github.com/deepnoodle-ai/wonton/assert"
	"google.golang.org/genai"
)

func newTestTool(t *testing.T) *toolkit.MemoryTool {
	t.Helper()
	tool, err := toolkit.NewMemoryTool(toolkit.MemoryToolOptions{Root: t.TempDir()})
	assert.NoError(t, err)
	t.Cleanup(func() { tool.Close() })
	return tool
}

func TestFunctionDeclaration(t *testing.T) {
	tool := newTestTool(t)
	decl := FunctionDeclaration(tool)

	assert.Equal(t, "memory", decl.Name)
	assert.Contains(t, decl.Description, "/memories")
	assert.NotNil(t, decl.Parameters)
	assert.Equal(t, genai.TypeObject, decl.Parameters.Type)
	assert.Equal(t, []string{"command"}, decl.Parameters.Required)

	command := decl.Parameters.Properties["command"]
	assert.Equal(t, genai.TypeString, command.Type)
	assert.Len(t, command.Enum, 6)

	viewRange := decl.Parameters.Properties["view_range"]
	assert.Equal(t, genai.TypeArray, viewRange.Type)
	assert.Equal(t, genai.TypeInteger, viewRange.Items.Type)

	assert.Len(t, Tool(tool).FunctionDeclarations, 1)
}

func TestExecuteFunctionCall(t *testing.T) {
	ctx := context.Background()
	tool := newTestTool(t)

	part, ok := ExecuteFunctionCall(ctx, tool, &genai.FunctionCall{
		ID:   "call-1",
		Name: "memory",
		Args: map[string]any{"command": "create", "path": "/memories/a.md", "file_text": "hello"},
	})
	assert.True(t, ok)
	assert.Equal(t, "call-1", part.FunctionResponse.ID)
	assert.Equal(t, "memory", part.FunctionResponse.Name)
	output, _ := part.FunctionResponse.Response["output"].(string)
	assert.Contains(t, output, "/memories/a.md")

	data, err := os.ReadFile(filepath.Join(tool.Root(), "a.md"))
	assert.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	part, ok = ExecuteFunctionCall(ctx, tool, &genai.FunctionCall{
		Name: "memory",
		Args: map[string]any{"command": "view", "path": "/memories/missing.md"},
	})
	assert.True(t, ok)
	assert.Equal(t, "NotFound", part.FunctionResponse.Response["error_kind"])

	_, ok = ExecuteFunctionCall(ctx, tool, &genai.FunctionCall{Name: "search"})
	assert.False(t, ok)
}
