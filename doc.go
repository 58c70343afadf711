// Package memfs provides a sandboxed persistent memory store for AI agents.
//
// The store is a virtual filesystem confined to a single root directory and
// driven by six commands (view, create, str_replace, insert, delete, rename)
// that a model issues as tool calls. Every path the model supplies is untrusted
// and is resolved against the sandbox root before any I/O happens.
//
// The packages are layered leaf-first:
//
//   - [github.com/deepnoodle-ai/memfs/vpath] validates and canonicalizes
//     virtual paths such as /memories/notes.md.
//   - [github.com/deepnoodle-ai/memfs/fileops] implements the six primitive
//     operations on an os.Root handle.
//   - [github.com/deepnoodle-ai/memfs/toolkit] parses and dispatches commands
//     and exposes the [Tool] that agents call.
//
// This package holds the shared contract: the result [Envelope], the
// [ErrorKind] taxonomy and the [Tool] interfaces.
//
// # Quick Start
//
//	tool, err := toolkit.NewMemoryTool(toolkit.MemoryToolOptions{Root: "/var/lib/agent"})
//	if err != nil {
//	    return err
//	}
//	defer tool.Close()
//	env := tool.Execute(ctx, `{"command":"create","path":"/memories/notes.md","file_text":"hello"}`)
//	fmt.Println(env.Success, env.Output)
//
// # Concurrency
//
// Commands hold no state between calls. Each mutation reads the whole file and
// replaces it through a temp file and rename, so readers never observe a
// partially written file. Two writers racing on the same file are
// last-writer-wins; no lock is taken.
package memfs
