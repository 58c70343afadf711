// Package google connects the memory tool to Gemini function calling.
package google

import (
	"context"

	"github.com/deepnoodle-ai/memfs/toolkit"
	"google.golang.org/genai"
)

// FunctionDeclaration describes the memory tool as a Gemini function.
func FunctionDeclaration(tool *toolkit.MemoryTool) *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        tool.Name(),
		Description: tool.Description(),
		Parameters:  convertSchemaToGenAI(tool.Schema()),
	}
}

// Tool wraps the declaration for use in genai.GenerateContentConfig.Tools.
func Tool(tool *toolkit.MemoryTool) *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{FunctionDeclaration(tool)},
	}
}

// ExecuteFunctionCall runs call against the memory tool and returns the
// function response part to send back to the model. It returns false when
// the call is for a different function.
func ExecuteFunctionCall(ctx context.Context, tool *toolkit.MemoryTool, call *genai.FunctionCall) (*genai.Part, bool) {
	if call == nil || call.Name != tool.Name() {
		return nil, false
	}
	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	envelope := tool.Execute(ctx, args)

	response := map[string]any{}
	if envelope.Success {
		response["output"] = envelope.Output
		if len(envelope.Listing) > 0 {
			response["listing"] = envelope.Listing
		}
	} else {
		response["error"] = envelope.Text()
		response["error_kind"] = string(envelope.ErrorKind)
	}
	return &genai.Part{
		FunctionResponse: &genai.FunctionResponse{
			ID:       call.ID,
			Name:     call.Name,
			Response: response,
		},
	}, true
}
