// Package manifest handles lvm.toml run configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/chazu/lvm/lib/natives"
)

// FileName is the name of the configuration file.
const FileName = "lvm.toml"

var ErrInvalid = errors.New("invalid manifest")

// Manifest represents an lvm.toml configuration.
type Manifest struct {
	Program ProgramConfig `toml:"program"`
	Run     RunConfig     `toml:"run"`
	Log     LogConfig     `toml:"log"`
	Debug   DebugConfig   `toml:"debug"`

	// Dir is the directory containing the lvm.toml file (set at load time).
	Dir string `toml:"-"`
}

// ProgramConfig names the melf file to run.
type ProgramConfig struct {
	Path string `toml:"path"`
}

// RunConfig configures the run loop.
type RunConfig struct {
	Limit   int64    `toml:"limit"`
	Slice   int64    `toml:"slice"`
	Trace   bool     `toml:"trace"`
	Natives []string `toml:"natives"`
}

// LogConfig configures commonlog. Verbosity uses the commonlog scale, where
// -4 disables logging and 2 enables debug messages.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// DebugConfig configures the interactive debugger.
type DebugConfig struct {
	History string `toml:"history"`
}

// Default returns the configuration used when no lvm.toml exists.
func Default() *Manifest {
	return &Manifest{
		Run: RunConfig{
			Limit:   -1,
			Slice:   65536,
			Natives: append([]string(nil), natives.Default...),
		},
		Log:   LogConfig{Verbosity: 1},
		Debug: DebugConfig{History: ".lvm_history"},
	}
}

// Load parses the lvm.toml file in dir. Keys missing from the file keep
// their default values; keys the manifest does not know are an error.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	md, err := toml.Decode(string(data), m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: %s: unknown keys %s", ErrInvalid, path, strings.Join(keys, ", "))
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find an lvm.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks value ranges and native names.
func (m *Manifest) Validate() error {
	if m.Run.Slice <= 0 {
		return fmt.Errorf("%w: run.slice must be positive, got %d", ErrInvalid, m.Run.Slice)
	}
	if m.Log.Verbosity < -4 {
		return fmt.Errorf("%w: log.verbosity must be at least -4, got %d", ErrInvalid, m.Log.Verbosity)
	}
	if err := natives.Check(m.Run.Natives); err != nil {
		return fmt.Errorf("%w: run.natives: %w", ErrInvalid, err)
	}
	return nil
}

// ProgramPath returns the program path resolved against Dir, or "" when
// none is configured.
func (m *Manifest) ProgramPath() string {
	return m.resolve(m.Program.Path)
}

// HistoryPath returns the debugger history path resolved against Dir.
func (m *Manifest) HistoryPath() string {
	return m.resolve(m.Debug.History)
}

// LogFile returns the log file path for commonlog.Configure, or nil for
// stderr.
func (m *Manifest) LogFile() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.resolve(m.Log.File)
	return &path
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}
