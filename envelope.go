package memfs

import (
	"encoding/json"
	"fmt"
)

// EntryType marks a listing entry as a file or a directory.
type EntryType string

const (
	EntryTypeFile      EntryType = "file"
	EntryTypeDirectory EntryType = "directory"
)

// Entry is one immediate child in a directory listing.
type Entry struct {
	Name string    `json:"name"`
	Type EntryType `json:"type"`
}

// IsDir returns true if the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Type == EntryTypeDirectory
}

// String renders the entry with a trailing slash for directories.
func (e Entry) String() string {
	if e.IsDir() {
		return e.Name + "/"
	}
	return e.Name
}

// Envelope is the uniform result of a memory command. Exactly one of the
// success fields (Output, Listing) or error fields (ErrorKind, Message) is
// meaningful, depending on Success.
type Envelope struct {
	Success   bool      `json:"success"`
	Output    string    `json:"output,omitempty"`
	Listing   []Entry   `json:"listing,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// NewSuccessEnvelope returns a successful envelope with the given output.
func NewSuccessEnvelope(output string) *Envelope {
	return &Envelope{Success: true, Output: output}
}

// NewErrorEnvelope converts err into a failed envelope.
func NewErrorEnvelope(err error) *Envelope {
	memErr := AsError(err, "memory operation failed")
	return &Envelope{
		Success:   false,
		ErrorKind: memErr.Kind,
		Message:   memErr.Message,
	}
}

// Err returns the envelope's failure as an *Error, or nil on success.
func (e *Envelope) Err() *Error {
	if e.Success {
		return nil
	}
	return &Error{Kind: e.ErrorKind, Message: e.Message}
}

// Text returns the text shown to the model for this envelope.
func (e *Envelope) Text() string {
	if e.Success {
		return e.Output
	}
	return fmt.Sprintf("Error (%s): %s", e.ErrorKind, e.Message)
}

// ToolResult converts the envelope into a tool result for an agent.
func (e *Envelope) ToolResult() *ToolResult {
	if e.Success {
		return NewToolResultText(e.Output)
	}
	return NewToolResultError(e.Text())
}

// JSON encodes the envelope. Encoding cannot fail for this type, so errors are
// folded into an IOFailure envelope.
func (e *Envelope) JSON() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		data, _ = json.Marshal(NewErrorEnvelope(err))
	}
	return data
}
