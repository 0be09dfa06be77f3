package source

import "strings"

// SourceFile represents a module's source text and its metadata.
type SourceFile struct {
	Name    string // Display name (e.g., "main.eel", "<eval>")
	Path    string // Full file path (empty for eval input)
	Content string // The source code content

	lines []string // cached split lines (lazy initialization)
}

// NewSourceFile creates a new source file.
func NewSourceFile(name, path, content string) *SourceFile {
	return &SourceFile{
		Name:    name,
		Path:    path,
		Content: content,
	}
}

// NewEvalSource creates a source file for in-process eval input (no
// backing path), used by tests that feed a fragment directly to the
// lexer/parser rather than reading a file.
func NewEvalSource(content string) *SourceFile {
	return &SourceFile{
		Name:    "<eval>",
		Content: content,
	}
}

// Lines returns the source split into lines (cached).
func (sf *SourceFile) Lines() []string {
	if sf.lines == nil {
		sf.lines = strings.Split(sf.Content, "\n")
	}
	return sf.lines
}

// DisplayPath returns the best path for display (prefers Path, falls back to Name).
func (sf *SourceFile) DisplayPath() string {
	if sf.Path != "" {
		return sf.Path
	}
	return sf.Name
}