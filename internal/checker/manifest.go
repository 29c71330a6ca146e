package checker

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"commitgate/internal/errors"
)

// Manifest declares the checker tools for a repository. It lives at
// .commitgate/tools.toml and overrides the built-in clang defaults.
type Manifest struct {
	Formatter ToolSpec `toml:"formatter"`
	Analyzer  ToolSpec `toml:"analyzer"`
}

// ToolSpec is the on-disk form of a Tool.
type ToolSpec struct {
	Enabled    *bool    `toml:"enabled"`
	Bin        string   `toml:"bin"`
	Config     string   `toml:"config"`
	Standard   string   `toml:"standard"`
	Extensions []string `toml:"extensions"`
	Args       []string `toml:"args"`
}

// cxxExtensions is the default extension filter for both clang tools.
var cxxExtensions = []string{".c", ".cc", ".cpp", ".cxx", ".h", ".hh", ".hpp", ".hxx"}

// DefaultManifest returns the built-in clang-format / clang-tidy setup.
func DefaultManifest() *Manifest {
	enabled := true
	return &Manifest{
		Formatter: ToolSpec{
			Enabled:    &enabled,
			Bin:        "clang-format",
			Config:     "",
			Extensions: cxxExtensions,
		},
		Analyzer: ToolSpec{
			Enabled:    &enabled,
			Bin:        "clang-tidy",
			Config:     "",
			Standard:   "c++17",
			Extensions: cxxExtensions,
		},
	}
}

// LoadManifest reads the tool manifest at path, returning the defaults when
// the file does not exist. Fields left empty in the file keep their default
// values.
func LoadManifest(path string) (*Manifest, error) {
	m := DefaultManifest()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, errors.New(errors.ConfigInvalid, fmt.Sprintf("cannot read tool manifest %s", path), err)
	}

	var overlay Manifest
	if err := toml.Unmarshal(data, &overlay); err != nil {
		return nil, errors.New(errors.ConfigInvalid, fmt.Sprintf("malformed tool manifest %s", path), err)
	}

	mergeSpec(&m.Formatter, overlay.Formatter)
	mergeSpec(&m.Analyzer, overlay.Analyzer)
	return m, nil
}

func mergeSpec(dst *ToolSpec, src ToolSpec) {
	if src.Enabled != nil {
		dst.Enabled = src.Enabled
	}
	if src.Bin != "" {
		dst.Bin = src.Bin
	}
	if src.Config != "" {
		dst.Config = src.Config
	}
	if src.Standard != "" {
		dst.Standard = src.Standard
	}
	if len(src.Extensions) > 0 {
		dst.Extensions = src.Extensions
	}
	if len(src.Args) > 0 {
		dst.Args = src.Args
	}
}

// ToolOf converts a ToolSpec into the runtime Tool form.
func (s ToolSpec) ToolOf() Tool {
	return Tool{
		Bin:        s.Bin,
		ConfigFile: s.Config,
		Tag:        s.Standard,
		Extensions: s.Extensions,
		ExtraArgs:  s.Args,
	}
}

// IsEnabled reports whether the spec is switched on. Unset means enabled.
func (s ToolSpec) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// DefaultManifestTOML is the starter file written by `commitgate init`.
const DefaultManifestTOML = `# commitgate tool manifest
#
# Each section declares one external checker. Unset fields keep the
# built-in clang defaults.

[formatter]
bin = "clang-format"
# config = ".clang-format-ci"
extensions = [".c", ".cc", ".cpp", ".cxx", ".h", ".hh", ".hpp", ".hxx"]

[analyzer]
bin = "clang-tidy"
# config = ".clang-tidy-ci"
standard = "c++17"
extensions = [".c", ".cc", ".cpp", ".cxx", ".h", ".hh", ".hpp", ".hxx"]
`
