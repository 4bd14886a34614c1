// Package changeset implements the changeset file format: a front matter
// mapping of package name to `level[:tag]`, a `---` line, and a free-text
// summary. Changesets are authored with Commit, consumed read-only by the
// version and changelog stages, and removed with Clean once applied.
package changeset
