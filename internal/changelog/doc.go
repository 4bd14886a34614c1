// Package changelog synthesizes and maintains per-package CHANGELOG.md files.
//
// This package implements:
//   - Attribution of changesets to the commit that introduced them and to
//     the pull request that commit belongs to
//   - Rendering of grouped version sections
//   - Parsing, merging and querying of changelog documents
//   - Terminal formatting for display in the CLI
//
// A changelog document starts with the literal line "# Changelog" followed
// by version sections headed "## v<version>", newest first.
package changelog
