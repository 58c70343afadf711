// Package openai connects the memory tool to the OpenAI Responses API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/deepnoodle-ai/memfs/toolkit"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
)

// FunctionTool describes the memory tool as a Responses API function tool.
// Strict mode is off because most arguments are optional.
func FunctionTool(tool *toolkit.MemoryTool) (responses.ToolUnionParam, error) {
	parameters, err := schemaParameters(tool)
	if err != nil {
		return responses.ToolUnionParam{}, err
	}
	param := responses.ToolParamOfFunction(tool.Name(), parameters, false)
	param.OfFunction.Description = openai.String(tool.Description())
	return param, nil
}

func schemaParameters(tool *toolkit.MemoryTool) (map[string]any, error) {
	data, err := json.Marshal(tool.Schema())
	if err != nil {
		return nil, fmt.Errorf("failed to encode memory tool schema: %w", err)
	}
	var parameters map[string]any
	if err := json.Unmarshal(data, &parameters); err != nil {
		return nil, fmt.Errorf("failed to decode memory tool schema: %w", err)
	}
	return parameters, nil
}

// ExecuteFunctionCall runs call against the memory tool and returns the
// function_call_output item to send back. The output is the JSON envelope.
// It returns false when the call is for a different function.
func ExecuteFunctionCall(ctx context.Context, tool *toolkit.MemoryTool, call responses.ResponseFunctionToolCall) (responses.ResponseInputItemUnionParam, bool) {
	if call.Name != tool.Name() {
		return responses.ResponseInputItemUnionParam{}, false
	}
	envelope := tool.Execute(ctx, call.Arguments)
	return responses.ResponseInputItemParamOfFunctionCallOutput(call.CallID, string(envelope.JSON())), true
}
