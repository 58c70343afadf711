package toolkit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/deepnoodle-ai/memfs"
	"github.com/deepnoodle-ai/memfs/fileops"
	"github.com/deepnoodle-ai/memfs/vpath"
)

// MemoryCommand names one of the memory tool commands.
type MemoryCommand string

const (
	MemoryCommandView       MemoryCommand = "view"
	MemoryCommandCreate     MemoryCommand = "create"
	MemoryCommandStrReplace MemoryCommand = "str_replace"
	MemoryCommandInsert     MemoryCommand = "insert"
	MemoryCommandDelete     MemoryCommand = "delete"
	MemoryCommandRename     MemoryCommand = "rename"
)

// Commands lists every supported command in the order they are documented.
var Commands = []MemoryCommand{
	MemoryCommandView,
	MemoryCommandCreate,
	MemoryCommandStrReplace,
	MemoryCommandInsert,
	MemoryCommandDelete,
	MemoryCommandRename,
}

// MemoryToolInput represents the input parameters for the memory tool.
// Pointer fields distinguish a missing argument from an empty one.
type MemoryToolInput struct {
	Command    MemoryCommand `json:"command"`
	Path       string        `json:"path,omitempty"`
	FileText   *string       `json:"file_text,omitempty"`
	ViewRange  []int         `json:"view_range,omitempty"`
	OldStr     *string       `json:"old_str,omitempty"`
	NewStr     *string       `json:"new_str,omitempty"`
	InsertLine *int          `json:"insert_line,omitempty"`
	InsertText *string       `json:"insert_text,omitempty"`
	OldPath    *string       `json:"old_path,omitempty"`
	NewPath    *string       `json:"new_path,omitempty"`
}

// memoryCommand is a validated command ready to run.
type memoryCommand interface {
	run(ctx context.Context, ops *fileops.Operations) (*fileops.Result, error)
}

type viewCommand struct {
	path      vpath.VirtualPath
	lineRange *fileops.LineRange
}

func (c viewCommand) run(ctx context.Context, ops *fileops.Operations) (*fileops.Result, error) {
	return ops.View(ctx, c.path, c.lineRange)
}

type createCommand struct {
	path vpath.VirtualPath
	text string
}

func (c createCommand) run(ctx context.Context, ops *fileops.Operations) (*fileops.Result, error) {
	return ops.Create(ctx, c.path, c.text)
}

type strReplaceCommand struct {
	path   vpath.VirtualPath
	oldStr string
	newStr string
}

func (c strReplaceCommand) run(ctx context.Context, ops *fileops.Operations) (*fileops.Result, error) {
	return ops.StrReplace(ctx, c.path, c.oldStr, c.newStr)
}

type insertCommand struct {
	path vpath.VirtualPath
	line int
	text string
}

func (c insertCommand) run(ctx context.Context, ops *fileops.Operations) (*fileops.Result, error) {
	return ops.Insert(ctx, c.path, c.line, c.text)
}

type deleteCommand struct {
	path vpath.VirtualPath
}

func (c deleteCommand) run(ctx context.Context, ops *fileops.Operations) (*fileops.Result, error) {
	return ops.Delete(ctx, c.path)
}

type renameCommand struct {
	oldPath vpath.VirtualPath
	newPath vpath.VirtualPath
}

func (c renameCommand) run(ctx context.Context, ops *fileops.Operations) (*fileops.Result, error) {
	return ops.Rename(ctx, c.oldPath, c.newPath)
}

// decodeMemoryInput accepts the input forms an agent loop, MCP server or CLI
// may hand over.
func decodeMemoryInput(raw any) (*MemoryToolInput, error) {
	switch v := raw.(type) {
	case *MemoryToolInput:
		if v == nil {
			return nil, memfs.Errorf(memfs.KindInvalidArguments, "input is empty")
		}
		return v, nil
	case MemoryToolInput:
		return &v, nil
	}
	var input MemoryToolInput
	if err := memfs.DecodeInput(raw, &input); err != nil {
		return nil, memfs.WrapError(memfs.KindInvalidArguments, err, "invalid input: "+jsonErrorMessage(err))
	}
	return &input, nil
}

// jsonErrorMessage names the offending field of a type mismatch.
func jsonErrorMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return typeErr.Field + " must be " + typeErr.Type.String()
	}
	return err.Error()
}

// parseCommand checks the arguments required by the named command. No
// filesystem access happens here.
func parseCommand(input *MemoryToolInput) (memoryCommand, error) {
	switch input.Command {
	case MemoryCommandView:
		if err := requirePath("path", input.Path); err != nil {
			return nil, err
		}
		cmd := viewCommand{path: vpath.VirtualPath(input.Path)}
		if input.ViewRange != nil {
			if len(input.ViewRange) != 2 {
				return nil, memfs.Errorf(memfs.KindInvalidArguments,
					"view_range must have exactly two elements [start_line, end_line]")
			}
			cmd.lineRange = &fileops.LineRange{Start: input.ViewRange[0], End: input.ViewRange[1]}
		}
		return cmd, nil

	case MemoryCommandCreate:
		if err := requirePath("path", input.Path); err != nil {
			return nil, err
		}
		if input.FileText == nil {
			return nil, missing("file_text", input.Command)
		}
		return createCommand{path: vpath.VirtualPath(input.Path), text: *input.FileText}, nil

	case MemoryCommandStrReplace:
		if err := requirePath("path", input.Path); err != nil {
			return nil, err
		}
		if input.OldStr == nil {
			return nil, missing("old_str", input.Command)
		}
		if *input.OldStr == "" {
			return nil, memfs.Errorf(memfs.KindInvalidArguments, "old_str must not be empty")
		}
		if input.NewStr == nil {
			return nil, missing("new_str", input.Command)
		}
		return strReplaceCommand{
			path:   vpath.VirtualPath(input.Path),
			oldStr: *input.OldStr,
			newStr: *input.NewStr,
		}, nil

	case MemoryCommandInsert:
		if err := requirePath("path", input.Path); err != nil {
			return nil, err
		}
		if input.InsertLine == nil {
			return nil, missing("insert_line", input.Command)
		}
		if input.InsertText == nil {
			return nil, missing("insert_text", input.Command)
		}
		return insertCommand{
			path: vpath.VirtualPath(input.Path),
			line: *input.InsertLine,
			text: *input.InsertText,
		}, nil

	case MemoryCommandDelete:
		if err := requirePath("path", input.Path); err != nil {
			return nil, err
		}
		return deleteCommand{path: vpath.VirtualPath(input.Path)}, nil

	case MemoryCommandRename:
		if input.OldPath == nil {
			return nil, missing("old_path", input.Command)
		}
		if input.NewPath == nil {
			return nil, missing("new_path", input.Command)
		}
		if err := requirePath("old_path", *input.OldPath); err != nil {
			return nil, err
		}
		if err := requirePath("new_path", *input.NewPath); err != nil {
			return nil, err
		}
		return renameCommand{
			oldPath: vpath.VirtualPath(*input.OldPath),
			newPath: vpath.VirtualPath(*input.NewPath),
		}, nil

	case "":
		return nil, memfs.Errorf(memfs.KindInvalidArguments, "command is required")

	default:
		return nil, memfs.Errorf(memfs.KindUnknownCommand,
			"Unrecognized command %s. The allowed commands are: %s", input.Command, allowedCommands())
	}
}

func requirePath(field, value string) error {
	if value == "" {
		return memfs.Errorf(memfs.KindInvalidArguments, "%s is required", field)
	}
	return nil
}

func missing(field string, command MemoryCommand) error {
	return memfs.Errorf(memfs.KindInvalidArguments, "%s is required for the %s command", field, command)
}

func allowedCommands() string {
	names := make([]string, 0, len(Commands))
	for _, c := range Commands {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}
