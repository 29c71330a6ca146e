package diffutil

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

var hunkHeaderRe = regexp.MustCompile(`^@@ -\d+(?:,(\d+))? \+\d+(?:,(\d+))? @@`)

// RewriteHeaders rewrites every `---`/`+++` pair of a concatenated unified
// diff into canonical `a/<path>` / `b/<path>` form, quoting paths that need
// it. Workers label both header sides with the repo-relative path, so the
// `+++` field carries everything needed to rebuild the pair. The result is
// directly consumable by `git apply -p1`.
//
// Hunk line counts are tracked so that removed content lines that happen to
// start with dashes are never mistaken for file headers.
func RewriteHeaders(patch []byte) ([]byte, error) {
	var out bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(patch))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var fromLine string
	var havePendingFrom bool
	var oldLeft, newLeft int

	flushPending := func() {
		if havePendingFrom {
			out.WriteString(fromLine)
			out.WriteByte('\n')
			havePendingFrom = false
		}
	}

	for scanner.Scan() {
		line := scanner.Text()

		inHunk := oldLeft > 0 || newLeft > 0
		if inHunk {
			switch {
			case strings.HasPrefix(line, "-"):
				oldLeft--
			case strings.HasPrefix(line, "+"):
				newLeft--
			case strings.HasPrefix(line, "\\"):
				// "\ No newline at end of file" consumes nothing.
			default:
				oldLeft--
				newLeft--
			}
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}

		switch {
		case strings.HasPrefix(line, "--- "):
			flushPending()
			fromLine = line
			havePendingFrom = true

		case havePendingFrom && strings.HasPrefix(line, "+++ "):
			rel, err := UnquotePath(strings.TrimPrefix(line, "+++ "))
			if err != nil {
				return nil, fmt.Errorf("malformed diff header: %w", err)
			}
			fmt.Fprintf(&out, "--- %s\n", QuotePath("a/"+rel))
			fmt.Fprintf(&out, "+++ %s\n", QuotePath("b/"+rel))
			havePendingFrom = false

		default:
			flushPending()
			if m := hunkHeaderRe.FindStringSubmatch(line); m != nil {
				oldLeft = hunkCount(m[1])
				newLeft = hunkCount(m[2])
			}
			out.WriteString(line)
			out.WriteByte('\n')
		}
	}
	flushPending()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading patch: %w", err)
	}
	return out.Bytes(), nil
}

func hunkCount(field string) int {
	if field == "" {
		return 1
	}
	n, err := strconv.Atoi(field)
	if err != nil {
		return 1
	}
	return n
}

// FileStat describes one file section of an assembled patch.
type FileStat struct {
	Path    string
	Added   int32
	Changed int32
	Deleted int32
}

// Summarize parses an assembled patch and returns per-file statistics. It
// doubles as a structural validation pass: a patch that does not parse as a
// multi-file unified diff would not survive a later git apply.
func Summarize(patch []byte) ([]FileStat, error) {
	if len(patch) == 0 {
		return nil, nil
	}

	fds, err := godiff.ParseMultiFileDiff(patch)
	if err != nil {
		return nil, fmt.Errorf("assembled patch does not parse: %w", err)
	}

	stats := make([]FileStat, 0, len(fds))
	for _, fd := range fds {
		st := fd.Stat()
		stats = append(stats, FileStat{
			Path:    strings.TrimPrefix(fd.NewName, "b/"),
			Added:   st.Added,
			Changed: st.Changed,
			Deleted: st.Deleted,
		})
	}
	return stats, nil
}
