package toolkit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deepnoodle-ai/memfs"
	"github.com/deepnoodle-ai/memfs/fileops"
	"github.com/deepnoodle-ai/memfs/log"
	"github.com/deepnoodle-ai/memfs/vpath"
	"github.com/deepnoodle-ai/wonton/schema"
	"github.com/google/uuid"
)

var (
	_ memfs.TypedTool[*MemoryToolInput] = &MemoryTool{}
	_ memfs.ToolConfiguration           = &MemoryTool{}
)

const (
	// DefaultMemoryToolType is Anthropic's native memory tool type.
	DefaultMemoryToolType = "memory_20250818"
	// DefaultMemoryToolName is the tool name presented to the model.
	DefaultMemoryToolName = "memory"
)

// Observer receives the outcome of every memory command. The kind is empty
// when the command succeeded.
type Observer interface {
	ObserveCommand(command string, kind memfs.ErrorKind, elapsed time.Duration)
}

// MemoryToolOptions are the options used to configure a MemoryTool.
type MemoryToolOptions struct {
	// Type is the Anthropic tool type identifier.
	Type string
	// Name is the tool name.
	Name string
	// Root is the host directory that backs the virtual memory directory. It
	// is created if it does not exist.
	Root string
	// MemoryDir is the virtual directory exposed to the model (defaults to
	// "/memories").
	MemoryDir string
	// Protected lists doublestar patterns of paths that cannot be modified.
	Protected []string
	// Ignore lists glob patterns of names hidden from directory listings.
	Ignore []string
	// MaxFileSize limits file size in bytes; 0 uses the default.
	MaxFileSize int64
	// Logger is optional. When nil, each command logs through the logger
	// attached to its context with log.WithLogger.
	Logger log.Logger
	// Observer is optional.
	Observer Observer
}

// MemoryTool implements Anthropic's memory tool on top of a sandboxed
// directory. Every command reads and writes the filesystem directly; nothing
// is cached between calls.
type MemoryTool struct {
	typeString string
	name       string
	ops        *fileops.Operations
	logger     log.Logger
	observer   Observer
}

// NewMemoryTool validates the configuration, prepares the root directory and
// returns a ready tool. Close releases the root handle.
func NewMemoryTool(opts MemoryToolOptions) (*MemoryTool, error) {
	if opts.Type == "" {
		opts.Type = DefaultMemoryToolType
	}
	if opts.Name == "" {
		opts.Name = DefaultMemoryToolName
	}
	if err := prepareRoot(opts.Root); err != nil {
		return nil, err
	}
	resolver, err := vpath.NewResolver(opts.Root, opts.MemoryDir)
	if err != nil {
		return nil, err
	}
	ops, err := fileops.New(resolver, fileops.Options{
		Protected:   opts.Protected,
		Ignore:      opts.Ignore,
		MaxFileSize: opts.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}
	if opts.Logger != nil {
		opts.Logger.Debug("memory tool ready", "root", resolver.Root(), "prefix", resolver.Prefix())
	}
	return &MemoryTool{
		typeString: opts.Type,
		name:       opts.Name,
		ops:        ops,
		logger:     opts.Logger,
		observer:   opts.Observer,
	}, nil
}

// prepareRoot creates root if needed and checks that it is a writable
// directory.
func prepareRoot(root string) error {
	if strings.TrimSpace(root) == "" {
		return memfs.Errorf(memfs.KindConfigurationError, "memory root directory is required")
	}
	info, err := os.Stat(root)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(root, 0o755); err != nil {
			return memfs.WrapError(memfs.KindConfigurationError, err, "failed to create memory root directory")
		}
	case err != nil:
		return memfs.WrapError(memfs.KindConfigurationError, err, "failed to access memory root directory")
	case !info.IsDir():
		return memfs.Errorf(memfs.KindConfigurationError, "memory root %s is not a directory", root)
	}
	probe, err := os.CreateTemp(root, ".memfs-probe-*")
	if err != nil {
		return memfs.WrapError(memfs.KindConfigurationError, err, "memory root directory is not writable")
	}
	name := probe.Name()
	probe.Close()
	if err := os.Remove(name); err != nil {
		return memfs.WrapError(memfs.KindConfigurationError, err,
			fmt.Sprintf("failed to remove probe file %s", filepath.Base(name)))
	}
	return nil
}

// Close releases the root handle. The tool must not be used afterwards.
func (t *MemoryTool) Close() error {
	return t.ops.Close()
}

// Root returns the canonical host directory backing the tool.
func (t *MemoryTool) Root() string {
	return t.ops.Resolver().Root()
}

// MemoryDir returns the virtual directory exposed to the model.
func (t *MemoryTool) MemoryDir() string {
	return t.ops.Resolver().Prefix()
}

func (t *MemoryTool) Name() string {
	return t.name
}

func (t *MemoryTool) Description() string {
	dir := t.MemoryDir()
	return fmt.Sprintf(`A memory tool for storing and retrieving information across conversations. Files persist in the %[1]s directory. This tool provides six commands:

1. view: Read file contents or list directory contents
   - For files: optionally specify view_range [start_line, end_line] to see specific lines (end_line -1 reads to the end)
   - For directories: lists the immediate files and subdirectories; directories end with "/"

2. create: Create or overwrite a file with the given content
   - Requires path and file_text
   - Missing parent directories are created

3. str_replace: Replace exact text in an existing file
   - Requires old_str (exact text to find) and new_str (replacement text)
   - The old_str must appear exactly once in the file

4. insert: Insert text at a specific line number
   - Requires insert_line and insert_text
   - Line 0 inserts at the beginning, line N inserts after line N

5. delete: Delete a file or directory (recursively)

6. rename: Rename or move a file or directory
   - Requires old_path and new_path; new_path must not exist

IMPORTANT: All paths must be within the %[1]s directory.`, dir)
}

func (t *MemoryTool) Schema() *schema.Schema {
	commands := make([]any, 0, len(Commands))
	for _, c := range Commands {
		commands = append(commands, string(c))
	}
	return &schema.Schema{
		Type: "object",
		Properties: map[string]*schema.Property{
			"command": {
				Type:        "string",
				Description: "The command to execute: view, create, str_replace, insert, delete, rename",
				Enum:        commands,
			},
			"path": {
				Type:        "string",
				Description: fmt.Sprintf("Path to the file or directory, e.g. %s/notes.md (for view, create, str_replace, insert, delete)", t.MemoryDir()),
			},
			"file_text": {
				Type:        "string",
				Description: "Text content for create command",
			},
			"view_range": {
				Type:        "array",
				Description: "Optional line range for view command [start_line, end_line], 1-indexed and inclusive; end_line -1 means end of file",
				Items: &schema.Property{
					Type: "integer",
				},
			},
			"old_str": {
				Type:        "string",
				Description: "Exact text to replace (for str_replace command)",
			},
			"new_str": {
				Type:        "string",
				Description: "Replacement text (for str_replace command)",
			},
			"insert_line": {
				Type:        "integer",
				Description: "Line after which to insert; 0 inserts at the beginning (for insert command)",
			},
			"insert_text": {
				Type:        "string",
				Description: "Text to insert (for insert command)",
			},
			"old_path": {
				Type:        "string",
				Description: "Source path (for rename command)",
			},
			"new_path": {
				Type:        "string",
				Description: "Destination path (for rename command)",
			},
		},
		Required: []string{"command"},
	}
}

func (t *MemoryTool) Annotations() *memfs.ToolAnnotations {
	return &memfs.ToolAnnotations{
		Title:           "memory",
		ReadOnlyHint:    false,
		DestructiveHint: true,
		IdempotentHint:  false,
		OpenWorldHint:   false,
	}
}

// ToolConfiguration returns the native tool definition for providers that
// have one.
func (t *MemoryTool) ToolConfiguration(providerName string) map[string]any {
	if providerName != "anthropic" {
		return nil
	}
	return map[string]any{
		"type": t.typeString,
		"name": t.name,
	}
}

// Call runs one command and converts the envelope to a tool result. Command
// failures are reported in the result, never as an error.
func (t *MemoryTool) Call(ctx context.Context, input *MemoryToolInput) (*memfs.ToolResult, error) {
	return t.Execute(ctx, input).ToolResult(), nil
}

// Tool returns the memory tool as an untyped memfs.Tool.
func (t *MemoryTool) Tool() memfs.Tool {
	return memfs.ToolAdapter[*MemoryToolInput](t)
}

// Execute decodes raw, runs the command it names and returns the envelope.
// raw may be a *MemoryToolInput, a MemoryToolInput, a map, or JSON given as
// json.RawMessage, []byte or string.
func (t *MemoryTool) Execute(ctx context.Context, raw any) (envelope *memfs.Envelope) {
	started := time.Now()
	requestID := uuid.NewString()
	name := "unknown"
	if ctx == nil {
		ctx = context.Background()
	}
	logger := t.loggerFor(ctx).With("request_id", requestID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("memory command panicked", "command", name, "panic", r)
			envelope = memfs.NewErrorEnvelope(memfs.Errorf(memfs.KindIOFailure, "internal error while running %s", name))
		}
		t.record(logger, name, envelope, time.Since(started))
	}()

	input, err := decodeMemoryInput(raw)
	if err != nil {
		return memfs.NewErrorEnvelope(err)
	}
	if input.Command != "" {
		name = string(input.Command)
	}
	cmd, err := parseCommand(input)
	if err != nil {
		return memfs.NewErrorEnvelope(err)
	}
	result, err := cmd.run(ctx, t.ops)
	if err != nil {
		return memfs.NewErrorEnvelope(err)
	}
	envelope = memfs.NewSuccessEnvelope(result.Output)
	if result.Listing != nil {
		envelope.Listing = result.Listing.Entries()
	}
	return envelope
}

// loggerFor prefers the configured logger over the one carried by ctx.
func (t *MemoryTool) loggerFor(ctx context.Context) log.Logger {
	if t.logger != nil {
		return t.logger
	}
	return log.Ctx(ctx)
}

func (t *MemoryTool) record(logger log.Logger, name string, envelope *memfs.Envelope, elapsed time.Duration) {
	logger = logger.With("command", name)
	switch {
	case envelope.Success:
		logger.Debug("memory command succeeded", "duration", elapsed)
	case envelope.ErrorKind == memfs.KindPathEscape:
		// Never log the path for escapes.
		logger.Warn("memory command rejected a path outside the memory directory")
	case envelope.ErrorKind == memfs.KindIOFailure:
		logger.Error("memory command failed", "error_kind", envelope.ErrorKind, "message", envelope.Message)
	default:
		logger.Debug("memory command failed", "error_kind", envelope.ErrorKind, "message", envelope.Message)
	}
	if t.observer != nil {
		t.observer.ObserveCommand(name, envelope.ErrorKind, elapsed)
	}
}
