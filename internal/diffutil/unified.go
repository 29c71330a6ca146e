package diffutil

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// contextLines is the unified-diff context width, matching what diff -u and
// git produce by default.
const contextLines = 3

const noNewlineMarker = "\\ No newline at end of file\n"

// Unified computes a unified diff between original and revised, labelling
// the two sides with the given header fields. Identical inputs yield the
// empty string. The labels are emitted verbatim; callers quote them first.
//
// Hunk bodies are emitted from the matcher's opcodes directly rather than
// through difflib's diff writer: its line splitter pads both sides with a
// phantom empty line after a trailing newline, which git apply rejects as
// context past end-of-file. A final line without a terminator is followed
// by git's no-newline marker.
func Unified(fromLabel, toLabel string, original, revised []byte) (string, error) {
	if bytes.Equal(original, revised) {
		return "", nil
	}

	a := splitLines(original)
	b := splitLines(revised)

	groups := difflib.NewMatcher(a, b).GetGroupedOpCodes(contextLines)
	if len(groups) == 0 {
		return "", nil
	}

	var out strings.Builder
	fmt.Fprintf(&out, "--- %s\n", fromLabel)
	fmt.Fprintf(&out, "+++ %s\n", toLabel)

	for _, group := range groups {
		first, last := group[0], group[len(group)-1]
		fmt.Fprintf(&out, "@@ -%s +%s @@\n",
			formatRange(first.I1, last.I2), formatRange(first.J1, last.J2))

		for _, op := range group {
			switch op.Tag {
			case 'e':
				writeLines(&out, ' ', a[op.I1:op.I2])
			case 'r':
				writeLines(&out, '-', a[op.I1:op.I2])
				writeLines(&out, '+', b[op.J1:op.J2])
			case 'd':
				writeLines(&out, '-', a[op.I1:op.I2])
			case 'i':
				writeLines(&out, '+', b[op.J1:op.J2])
			}
		}
	}
	return out.String(), nil
}

// splitLines splits content into lines keeping terminators. A trailing
// newline produces no extra empty element; a final line without a
// terminator is kept as-is and marked during emission.
func splitLines(data []byte) []string {
	lines := strings.SplitAfter(string(data), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// writeLines emits hunk body lines. Only a file's final line can lack a
// terminator, and git's marker must follow it immediately.
func writeLines(out *strings.Builder, prefix byte, lines []string) {
	for _, line := range lines {
		out.WriteByte(prefix)
		out.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			out.WriteByte('\n')
			out.WriteString(noNewlineMarker)
		}
	}
}

// formatRange renders one side of a hunk header: 1-based start with a
// count, the count omitted when it is 1, the start backed up to the
// preceding line when the range is empty.
func formatRange(start, end int) string {
	length := end - start
	begin := start + 1
	if length == 1 {
		return fmt.Sprintf("%d", begin)
	}
	if length == 0 {
		begin--
	}
	return fmt.Sprintf("%d,%d", begin, length)
}
