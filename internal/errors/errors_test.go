package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  *Error
		want string
	}{
		"invalid changeset": {
			err:  &Error{Kind: InvalidChangeset, Path: ".changes/a.md", Reason: "missing separator"},
			want: "invalid changeset .changes/a.md: missing separator",
		},
		"command failure carries status": {
			err:  NewCommandFailed("cargo publish", 101, nil),
			want: `command "cargo publish" exited with status 101`,
		},
		"package context": {
			err:  NewParseErrorReason("Cargo.toml", "missing [package]").WithPackage("core"),
			want: "failed to parse Cargo.toml (package core): missing [package]",
		},
		"wrapped cause": {
			err:  NewGit("opening repository", fmt.Errorf("boom")),
			want: "git error: opening repository: boom",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsKindThroughWrapping(t *testing.T) {
	t.Parallel()

	base := NewInvalidChangeset("x.md", "unknown package")
	wrapped := fmt.Errorf("loading changesets: %w", base)

	assert.True(t, IsKind(wrapped, InvalidChangeset))
	assert.False(t, IsKind(wrapped, InvalidConfig))
	assert.False(t, IsKind(fmt.Errorf("plain"), InvalidChangeset))

	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, InvalidChangeset, kind)
}

func TestNewIOMapsMissingFiles(t *testing.T) {
	t.Parallel()

	err := NewIO("Cargo.toml", fs.ErrNotExist)
	assert.Equal(t, NotFound, err.Kind)

	err = NewIO("Cargo.toml", fs.ErrPermission)
	assert.Equal(t, IO, err.Kind)
	assert.True(t, stderrors.Is(err, fs.ErrPermission))
}

func TestWithPackageKeepsExistingPackage(t *testing.T) {
	t.Parallel()

	err := WithPackage(NewNotFound("a").WithPackage("first"), "second")
	assert.Equal(t, "first", As(err).Package)

	err = WithPackage(NewNotFound("a"), "second")
	assert.Equal(t, "second", As(err).Package)

	assert.Nil(t, WithPackage(nil, "x"))
}

func TestFormatErrorPlain(t *testing.T) {
	t.Parallel()

	out := FormatErrorPlain(NewInvalidConfig("config.toml", "bad resolver"))
	assert.Contains(t, out, "Error [Invalid Config]: invalid config config.toml: bad resolver")
	assert.Contains(t, out, "To fix this:")

	out = FormatErrorPlain(fmt.Errorf("plain failure"))
	assert.Equal(t, "Error [Error]: plain failure\n", out)
	assert.Empty(t, FormatErrorPlain(nil))
}
