package diffutil

import "testing"

func TestNeedsQuote(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"src/main.cpp", false},
		{"deep/nested/path_1.hpp", false},
		{"has space.cpp", true},
		{`has"quote.cpp`, true},
		{"glob*.cpp", true},
		{"maybe?.cpp", true},
		{"set[0].cpp", true},
		{"back\\slash.cpp", true},
		{"tab\there.cpp", true},
		{"utf8-\xc3\xa4.cpp", true},
	}

	for _, tc := range tests {
		if got := NeedsQuote(tc.path); got != tc.want {
			t.Errorf("NeedsQuote(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestQuotePathRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"plain", "src/main.cpp"},
		{"space", "dir with space/file.cpp"},
		{"quote and asterisk", `we"ird*.cpp`},
		{"backslash", `win\path.cpp`},
		{"tab and newline", "a\tb\nc.cpp"},
		{"non-ascii", "über.cpp"},
		{"control char", "bell\x07.cpp"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			quoted := QuotePath(tc.path)
			back, err := UnquotePath(quoted)
			if err != nil {
				t.Fatalf("UnquotePath(%q): %v", quoted, err)
			}
			if back != tc.path {
				t.Errorf("round trip %q -> %q -> %q", tc.path, quoted, back)
			}
		})
	}
}

func TestQuotePathLeavesPlainPathsAlone(t *testing.T) {
	if got := QuotePath("src/main.cpp"); got != "src/main.cpp" {
		t.Errorf("QuotePath = %q, want unchanged", got)
	}
}

func TestQuotePathOctalEscapes(t *testing.T) {
	// Bytes outside printable ASCII become three-digit octal, the form
	// git-apply unquotes.
	got := QuotePath("a\x07b")
	if got != `"a\007b"` {
		t.Errorf("QuotePath = %q, want %q", got, `"a\007b"`)
	}
}

func TestUnquotePathErrors(t *testing.T) {
	tests := []struct {
		name  string
		field string
	}{
		{"unterminated", `"abc`},
		{"dangling escape", `"abc\"`},
		{"unknown escape", `"a\qb"`},
		{"truncated octal", `"a\07"`},
		{"bad octal digit", `"a\099"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := UnquotePath(tc.field); err == nil {
				t.Errorf("UnquotePath(%q) succeeded, want error", tc.field)
			}
		})
	}
}

func TestUnquotePathPassesThroughUnquoted(t *testing.T) {
	got, err := UnquotePath("plain/path.cpp")
	if err != nil || got != "plain/path.cpp" {
		t.Errorf("UnquotePath = %q, %v", got, err)
	}
}
