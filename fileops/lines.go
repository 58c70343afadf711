package fileops

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// LineRange is an inclusive, 1-indexed range of lines. An End of -1 means
// the last line of the file.
type LineRange struct {
	Start int
	End   int
}

// splitLines splits content into lines. A single trailing newline terminates
// the last line rather than starting an empty one, so "a\n" has one line and
// "" has none.
func splitLines(content string) ([]string, bool) {
	if content == "" {
		return nil, false
	}
	trailing := strings.HasSuffix(content, "\n")
	if trailing {
		content = content[:len(content)-1]
	}
	return strings.Split(content, "\n"), trailing
}

func joinLines(lines []string, trailing bool) string {
	joined := strings.Join(lines, "\n")
	if trailing && len(lines) > 0 {
		joined += "\n"
	}
	return joined
}

// occurrenceLines returns the 1-indexed line on which each non-overlapping
// occurrence of substr starts.
func occurrenceLines(content, substr string) []int {
	var lines []int
	offset := 0
	for {
		idx := strings.Index(content[offset:], substr)
		if idx < 0 {
			return lines
		}
		start := offset + idx
		lines = append(lines, strings.Count(content[:start], "\n")+1)
		offset = start + len(substr)
	}
}

// editDiff renders a unified diff of an edit for the model to check.
func editDiff(path, before, after string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return text
}
