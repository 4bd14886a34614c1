package config

// GetDefaults returns the default configuration values keyed by koanf path.
func GetDefaults() map[string]interface{} {
	return map[string]interface{}{
		"branches" + keyDelim + "base":    "main",
		"branches" + keyDelim + "release": "release",
	}
}

// DefaultTags returns the changelog groups written by `shipset init`.
func DefaultTags() map[string]string {
	return map[string]string{
		"chore":    "Chores",
		"feat":     "New Features",
		"fix":      "Bug Fixes",
		"perf":     "Performance Improvements",
		"refactor": "Refactors",
	}
}

// DefaultResolverConfig returns the publish commands `shipset init` writes
// for a resolver kind.
func DefaultResolverConfig(kind ResolverKind) ResolverConfig {
	switch kind {
	case ResolverRust:
		return ResolverConfig{
			PreCheck: &PreCheckConfig{
				URL:          "https://crates.io/api/v1/crates/{{ package.name }}/{{ package.version }}",
				ExtraHeaders: map[string]string{"User-Agent": "shipset"},
			},
			Publish: []CommandConfig{
				{Command: "cargo", Args: []string{"publish", "--no-verify"}},
			},
		}
	case ResolverNodejs:
		return ResolverConfig{
			PreCheck: &PreCheckConfig{
				URL: "https://registry.npmjs.org/{{ package.name }}/{{ package.version }}",
			},
			Publish: []CommandConfig{
				{Command: "npm", Args: []string{"publish", "--access", "public"}},
			},
		}
	case ResolverPython:
		return ResolverConfig{
			PreCheck: &PreCheckConfig{
				URL: "https://pypi.org/pypi/{{ package.name }}/{{ package.version }}/json",
			},
			Prepublish: []CommandConfig{
				{Command: "uv", Args: []string{"build"}},
			},
			Publish: []CommandConfig{
				{Command: "uv", Args: []string{"publish"}},
			},
		}
	default:
		return ResolverConfig{}
	}
}

// GetChangesetReadme returns the README written into a new changeset directory.
func GetChangesetReadme() string {
	return `# Changesets

Each Markdown file in this directory describes one pending change. Files
consist of a front matter mapping, a ` + "`---`" + ` line and a summary:

    my-package: minor:feat
    other-package: patch
    ---

    Add streaming support to the ingest path.

Levels are major, minor or patch. The optional tag after the colon selects
the changelog group configured under [tags] in the config file.

Create one with ` + "`shipset add`" + `, preview the result with
` + "`shipset status`" + ` and apply it with ` + "`shipset version`" + `.
`
}
