package memfs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/deepnoodle-ai/wonton/schema"
)

// ToolAnnotations describe how a tool behaves, following the MCP hint names.
type ToolAnnotations struct {
	Title           string `json:"title,omitempty"`
	ReadOnlyHint    bool   `json:"readOnlyHint,omitempty"`
	DestructiveHint bool   `json:"destructiveHint,omitempty"`
	IdempotentHint  bool   `json:"idempotentHint,omitempty"`
	OpenWorldHint   bool   `json:"openWorldHint,omitempty"`
}

type ToolResultContentType string

const (
	ToolResultContentTypeText ToolResultContentType = "text"
)

type ToolResultContent struct {
	Type ToolResultContentType `json:"type"`
	Text string                `json:"text,omitempty"`
}

// ToolResult is the output from a tool call.
type ToolResult struct {
	Content []*ToolResultContent `json:"content"`
	IsError bool                 `json:"isError,omitempty"`
}

// NewToolResultError creates a new ToolResult containing an error message.
func NewToolResultError(text string) *ToolResult {
	return &ToolResult{
		IsError: true,
		Content: []*ToolResultContent{
			{
				Type: ToolResultContentTypeText,
				Text: text,
			},
		},
	}
}

// NewToolResultText creates a new ToolResult with the given text content.
func NewToolResultText(text string) *ToolResult {
	return &ToolResult{
		Content: []*ToolResultContent{
			{
				Type: ToolResultContentTypeText,
				Text: text,
			},
		},
	}
}

// Tool is an interface for a tool that can be called by an LLM.
type Tool interface {
	// Name of the tool.
	Name() string

	// Description of the tool.
	Description() string

	// Schema describes the parameters used to call the tool.
	Schema() *schema.Schema

	// Annotations returns optional properties that describe tool behavior.
	Annotations() *ToolAnnotations

	// Call is the function that is called to use the tool.
	Call(ctx context.Context, input any) (*ToolResult, error)
}

// TypedTool is a tool that can be called with a specific type of input.
type TypedTool[T any] interface {
	Name() string
	Description() string
	Schema() *schema.Schema
	Annotations() *ToolAnnotations
	Call(ctx context.Context, input T) (*ToolResult, error)
}

// ToolConfiguration is implemented by tools that a provider knows natively
// (for example Anthropic's memory tool type).
type ToolConfiguration interface {
	ToolConfiguration(providerName string) map[string]any
}

// ToolAdapter creates a new TypedToolAdapter for the given tool.
func ToolAdapter[T any](tool TypedTool[T]) *TypedToolAdapter[T] {
	return &TypedToolAdapter[T]{tool: tool}
}

// TypedToolAdapter allows a TypedTool to be used as a regular Tool. The Call
// method accepts `input any` and unmarshals it to the tool's input type.
type TypedToolAdapter[T any] struct {
	tool TypedTool[T]
}

func (t *TypedToolAdapter[T]) Name() string {
	return t.tool.Name()
}

func (t *TypedToolAdapter[T]) Description() string {
	return t.tool.Description()
}

func (t *TypedToolAdapter[T]) Schema() *schema.Schema {
	return t.tool.Schema()
}

func (t *TypedToolAdapter[T]) Annotations() *ToolAnnotations {
	return t.tool.Annotations()
}

func (t *TypedToolAdapter[T]) Call(ctx context.Context, input any) (*ToolResult, error) {
	// Pass through if the input is already the correct type
	if converted, ok := input.(T); ok {
		return t.tool.Call(ctx, converted)
	}
	var typedInput T
	if err := DecodeInput(input, &typedInput); err != nil {
		return NewToolResultError(fmt.Sprintf("invalid json for tool %s: %v", t.Name(), err)), nil
	}
	return t.tool.Call(ctx, typedInput)
}

// Unwrap returns the underlying TypedTool.
func (t *TypedToolAdapter[T]) Unwrap() TypedTool[T] {
	return t.tool
}

func (t *TypedToolAdapter[T]) ToolConfiguration(providerName string) map[string]any {
	if toolWithConfig, ok := t.tool.(ToolConfiguration); ok {
		return toolWithConfig.ToolConfiguration(providerName)
	}
	return nil
}

// DecodeInput unmarshals a raw tool input into out. Raw JSON may be given as
// json.RawMessage, []byte or string; any other value is round-tripped through
// encoding/json.
func DecodeInput(input any, out any) error {
	var data []byte
	switch raw := input.(type) {
	case nil:
		return fmt.Errorf("input is empty")
	case json.RawMessage:
		data = raw
	case []byte:
		data = raw
	case string:
		data = []byte(raw)
	default:
		encoded, err := json.Marshal(input)
		if err != nil {
			return err
		}
		data = encoded
	}
	if len(data) == 0 {
		return fmt.Errorf("input is empty")
	}
	return json.Unmarshal(data, out)
}
