package config

// StdioType routes a command's stdout or stderr.
type StdioType string

const (
	StdioInherit StdioType = "inherit"
	StdioPipe    StdioType = "pipe"
	StdioNull    StdioType = "null"
)

// Valid reports whether s is a known routing; empty means inherit.
func (s StdioType) Valid() bool {
	switch s {
	case "", StdioInherit, StdioPipe, StdioNull:
		return true
	}
	return false
}

// CommandConfig is one command run by a resolver during publish or after versioning.
type CommandConfig struct {
	// Command is the executable. When Args is empty it may hold a full
	// command line that is split shell-style.
	Command  string            `koanf:"command" toml:"command" json:"command"`
	Args     []string          `koanf:"args" toml:"args,omitempty" json:"args,omitempty"`
	ExtraEnv map[string]string `koanf:"extra-env" toml:"extra-env,omitempty" json:"extra-env,omitempty"`
	Stdout   StdioType         `koanf:"stdout" toml:"stdout,omitempty" json:"stdout,omitempty"`
	Stderr   StdioType         `koanf:"stderr" toml:"stderr,omitempty" json:"stderr,omitempty"`
	// DryRun marks a command as safe to execute during dry runs.
	DryRun bool `koanf:"dry-run" toml:"dry-run,omitempty" json:"dry-run,omitempty"`
}

// PreCheckConfig asks a registry whether a version is already published.
// The URL may reference {{ package.name }} and {{ package.version }}.
type PreCheckConfig struct {
	URL          string            `koanf:"url" toml:"url" json:"url"`
	ExtraHeaders map[string]string `koanf:"extra-headers" toml:"extra-headers,omitempty" json:"extra-headers,omitempty"`
}

// ResolverConfig holds the commands for one resolver kind.
type ResolverConfig struct {
	PreCheck    *PreCheckConfig `koanf:"pre-check" toml:"pre-check,omitempty" json:"pre-check,omitempty"`
	Prepublish  []CommandConfig `koanf:"prepublish" toml:"prepublish,omitempty" json:"prepublish,omitempty"`
	Publish     []CommandConfig `koanf:"publish" toml:"publish,omitempty" json:"publish,omitempty"`
	PostVersion []CommandConfig `koanf:"post-version" toml:"post-version,omitempty" json:"post-version,omitempty"`
}
