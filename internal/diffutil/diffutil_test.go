package diffutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	godiff "github.com/sourcegraph/go-diff/diff"
)

func TestUnifiedIdenticalInputs(t *testing.T) {
	text, err := Unified("a.cpp", "a.cpp", []byte("same\n"), []byte("same\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Errorf("identical inputs should yield empty diff, got %q", text)
	}
}

func TestUnifiedProducesHeadersAndHunk(t *testing.T) {
	original := []byte("int main() {\nreturn 0;\n}\n")
	revised := []byte("int main() {\n  return 0;\n}\n")

	text, err := Unified("src/a.cpp", "src/a.cpp", original, revised)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(text, "--- src/a.cpp\n+++ src/a.cpp\n") {
		t.Errorf("missing header labels:\n%s", text)
	}
	if !strings.Contains(text, "-return 0;\n") || !strings.Contains(text, "+  return 0;\n") {
		t.Errorf("missing expected hunk lines:\n%s", text)
	}
}

func TestUnifiedStopsAtEndOfFile(t *testing.T) {
	// A change within context distance of EOF must not claim a line past
	// end-of-file: a 3-line file diffs as -1,3 +1,3, never -1,4.
	original := []byte("int main() {\nreturn 0;\n}\n")
	revised := []byte("int main() {\n  return 0;\n}\n")

	text, err := Unified("a.cpp", "a.cpp", original, revised)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "@@ -1,3 +1,3 @@\n") {
		t.Errorf("hunk header wrong:\n%s", text)
	}
	if strings.Contains(text, "\n \n") {
		t.Errorf("diff claims a blank context line the file does not have:\n%s", text)
	}
}

func TestUnifiedNoNewlineMarkers(t *testing.T) {
	t.Run("both sides unterminated", func(t *testing.T) {
		text, err := Unified("f", "f", []byte("alpha\nbeta"), []byte("alpha\ngamma"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "@@ -1,2 +1,2 @@\n" +
			" alpha\n" +
			"-beta\n" +
			"\\ No newline at end of file\n" +
			"+gamma\n" +
			"\\ No newline at end of file\n"
		if !strings.Contains(text, want) {
			t.Errorf("markers missing or misplaced:\n%s", text)
		}
	})

	t.Run("terminator removed", func(t *testing.T) {
		text, err := Unified("f", "f", []byte("x\n"), []byte("x"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "-x\n" +
			"+x\n" +
			"\\ No newline at end of file\n"
		if !strings.Contains(text, want) {
			t.Errorf("marker must follow the new unterminated line only:\n%s", text)
		}
		if strings.Contains(text, "-x\n\\") {
			t.Errorf("old terminated line must not carry a marker:\n%s", text)
		}
	})
}

// gitApply applies a patch file inside dir with the same invocation the
// gatekeeper instructs users to run.
func gitApply(t *testing.T, dir, patchPath string) error {
	t.Helper()
	cmd := exec.Command("git", "apply", "-p1", patchPath)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git apply: %v: %s", err, out)
	}
	return nil
}

func TestPatchRoundTripThroughGitApply(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	tests := []struct {
		name     string
		path     string
		original string
		revised  string
	}{
		{
			name:     "indent fix near end of file",
			path:     "a.cpp",
			original: "int main() {\nreturn 0;\n}\n",
			revised:  "int main() {\n  return 0;\n}\n",
		},
		{
			name:     "change in the middle of a longer file",
			path:     "src/wide.cpp",
			original: "one\ntwo\nthree\nfour\nfive\nsix\nseven\neight\nnine\nten\n",
			revised:  "one\ntwo\nthree\nFOUR\nfive\nsix\nseven\neight\nnine\nten\n",
		},
		{
			name:     "both sides missing final newline",
			path:     "raw.cpp",
			original: "alpha\nbeta",
			revised:  "alpha\ngamma",
		},
		{
			name:     "final newline added",
			path:     "eol.cpp",
			original: "x",
			revised:  "x\n",
		},
		{
			name:     "final newline removed",
			path:     "noeol.cpp",
			original: "x\n",
			revised:  "x",
		},
		{
			name:     "path needing quoting",
			path:     `we"ird*.cpp`,
			original: "a\nb\nc\n",
			revised:  "a\nB\nc\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tree := t.TempDir()
			target := filepath.Join(tree, filepath.FromSlash(tc.path))
			if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(target, []byte(tc.original), 0o600); err != nil {
				t.Fatal(err)
			}

			label := QuotePath(tc.path)
			text, err := Unified(label, label, []byte(tc.original), []byte(tc.revised))
			if err != nil {
				t.Fatalf("diff failed: %v", err)
			}
			patch, err := RewriteHeaders([]byte(text))
			if err != nil {
				t.Fatalf("rewrite failed: %v", err)
			}

			patchPath := filepath.Join(t.TempDir(), "fix.patch")
			if err := os.WriteFile(patchPath, patch, 0o600); err != nil {
				t.Fatal(err)
			}
			if err := gitApply(t, tree, patchPath); err != nil {
				t.Fatalf("assembled patch rejected:\n%s\n%v", patch, err)
			}

			got, err := os.ReadFile(target)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tc.revised {
				t.Errorf("applied content = %q, want %q", got, tc.revised)
			}
		})
	}
}

func TestRewriteHeadersCanonicalForm(t *testing.T) {
	partial := "--- src/a.cpp\n" +
		"+++ src/a.cpp\n" +
		"@@ -1,3 +1,3 @@\n" +
		" int main() {\n" +
		"-return 0;\n" +
		"+  return 0;\n" +
		" }\n"

	out, err := RewriteHeaders([]byte(partial))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := string(out)
	if !strings.Contains(got, "--- a/src/a.cpp\n+++ b/src/a.cpp\n") {
		t.Errorf("headers not rewritten:\n%s", got)
	}
	if !strings.Contains(got, "-return 0;\n") {
		t.Errorf("hunk body altered:\n%s", got)
	}
}

func TestRewriteHeadersQuotedPathRoundTrip(t *testing.T) {
	path := `we"ird*.cpp`
	partial := "--- " + QuotePath(path) + "\n" +
		"+++ " + QuotePath(path) + "\n" +
		"@@ -1,1 +1,1 @@\n" +
		"-old\n" +
		"+new\n"

	out, err := RewriteHeaders([]byte(partial))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The rewritten header must survive a structured diff parse without
	// corrupting the path.
	fds, err := godiff.ParseMultiFileDiff(out)
	if err != nil {
		t.Fatalf("rewritten patch does not parse: %v\n%s", err, out)
	}
	if len(fds) != 1 {
		t.Fatalf("expected 1 file section, got %d", len(fds))
	}
	if fds[0].OrigName != "a/"+path || fds[0].NewName != "b/"+path {
		t.Errorf("parsed names = %q / %q, want a/ and b/ of %q", fds[0].OrigName, fds[0].NewName, path)
	}
}

func TestRewriteHeadersIgnoresDashContentInsideHunks(t *testing.T) {
	// A removed content line beginning with dashes must not be mistaken
	// for a file header.
	partial := "--- a.txt\n" +
		"+++ a.txt\n" +
		"@@ -1,2 +1,1 @@\n" +
		"--- not a header\n" +
		"-+++ also content\n" +
		"+merged\n"

	out, err := RewriteHeaders([]byte(partial))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := string(out)
	if !strings.Contains(got, "--- not a header\n") {
		t.Errorf("hunk content was rewritten:\n%s", got)
	}
	if !strings.Contains(got, "--- a/a.txt\n+++ b/a.txt\n") {
		t.Errorf("real header was not rewritten:\n%s", got)
	}
}

func TestRewriteHeadersMultipleSections(t *testing.T) {
	partial := "--- one.cpp\n+++ one.cpp\n@@ -1,1 +1,1 @@\n-a\n+b\n" +
		"--- two.cpp\n+++ two.cpp\n@@ -1,1 +1,1 @@\n-c\n+d\n"

	out, err := RewriteHeaders([]byte(partial))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := string(out)
	if !strings.Contains(got, "--- a/one.cpp") || !strings.Contains(got, "--- a/two.cpp") {
		t.Errorf("both sections should be rewritten:\n%s", got)
	}
}

func TestSummarize(t *testing.T) {
	patch := "--- a/one.cpp\n+++ b/one.cpp\n@@ -1,2 +1,2 @@\n ctx\n-a\n+b\n" +
		"--- a/two.cpp\n+++ b/two.cpp\n@@ -1,1 +1,2 @@\n c\n+d\n"

	stats, err := Summarize([]byte(patch))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 file stats, got %d", len(stats))
	}
	if stats[0].Path != "one.cpp" || stats[1].Path != "two.cpp" {
		t.Errorf("paths = %q, %q", stats[0].Path, stats[1].Path)
	}
	if stats[1].Added != 1 {
		t.Errorf("two.cpp added = %d, want 1", stats[1].Added)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	stats, err := Summarize(nil)
	if err != nil || stats != nil {
		t.Errorf("Summarize(nil) = %v, %v; want nil, nil", stats, err)
	}
}
