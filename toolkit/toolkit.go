// Package toolkit exposes the memory store as an agent tool.
//
// [MemoryTool] implements Anthropic's memory tool contract (view, create,
// str_replace, insert, delete, rename) over a sandboxed directory. Inputs are
// decoded into [MemoryToolInput], validated into a typed command and run
// against the filesystem; every call returns a [memfs.Envelope]. Failures are
// reported inside the envelope and never as Go errors or panics.
//
// Every command is logged with a request id, and an optional [Observer]
// receives the command name, error kind and duration for metrics.
package toolkit
