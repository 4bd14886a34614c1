// Package resolver adapts each supported build ecosystem to one capability
// set: read a package's name and version from its manifest, discover the
// packages in a workspace, rewrite the version in place, order packages by
// their direct same-workspace dependencies, and run publish commands.
//
// The set of ecosystems is closed; New dispatches on config.ResolverKind.
package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ariel-frischer/shipset/internal/config"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
)

// ResolvedPackage is the ecosystem-independent view of a package as
// currently persisted on disk.
type ResolvedPackage struct {
	Name    string
	Version string
	// Path is the package directory relative to the repository root.
	Path string
	// Private packages are never published.
	Private bool
	// VersionSource is the root-relative manifest holding a version shared
	// with other packages, such as a Cargo workspace. Empty when the
	// package's own manifest holds its version.
	VersionSource string
}

// Resolver is implemented once per ecosystem.
type Resolver interface {
	// Kind returns the ecosystem this resolver handles.
	Kind() config.ResolverKind
	// Resolve reads the manifest at root/pkg.Path.
	Resolve(root string, pkg config.PackageConfig) (*ResolvedPackage, error)
	// ResolveAll discovers every package in the workspace rooted at root.
	// Members that fail to resolve are logged and skipped.
	ResolveAll(root string) ([]*ResolvedPackage, error)
	// Bump rewrites the manifest version in place. With dryRun nothing is written.
	Bump(root string, pkg *ResolvedPackage, newVersion string, dryRun bool) error
	// SortPackages moves packages of this ecosystem after the packages they
	// directly depend on, leaving every other pair in its original order.
	SortPackages(root string, packages []config.NamedPackage) ([]config.NamedPackage, error)
	// Publish runs the prepublish and publish commands in the package directory.
	Publish(ctx context.Context, root string, pkg *ResolvedPackage, cfg config.ResolverConfig, dryRun bool) error
}

// Option configures the command runner shared by all resolvers.
type Option func(*Runner)

// WithOutput sets the writers used for inherited command output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.Stdout = stdout
		r.Stderr = stderr
	}
}

// WithHTTPClient sets the client used for registry pre-checks.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Runner) {
		r.HTTPClient = client
	}
}

// New returns the resolver for kind.
func New(kind config.ResolverKind, opts ...Option) (Resolver, error) {
	runner := NewRunner(opts...)
	switch kind {
	case config.ResolverRust:
		return &CargoResolver{publisher{runner: runner}}, nil
	case config.ResolverNodejs:
		return &NodeResolver{publisher{runner: runner}}, nil
	case config.ResolverPython:
		return &PythonResolver{publisher{runner: runner}}, nil
	case config.ResolverCpp:
		return &CppResolver{publisher{runner: runner}}, nil
	default:
		return nil, shiperrors.NewInvalidConfig("", fmt.Sprintf("unknown resolver %q", kind))
	}
}

// Set caches one resolver per kind for a run.
type Set struct {
	opts      []Option
	resolvers map[config.ResolverKind]Resolver
}

// NewSet creates a lazily populated resolver set.
func NewSet(opts ...Option) *Set {
	return &Set{opts: opts, resolvers: make(map[config.ResolverKind]Resolver)}
}

// Get returns the resolver for kind, creating it on first use.
func (s *Set) Get(kind config.ResolverKind) (Resolver, error) {
	if r, ok := s.resolvers[kind]; ok {
		return r, nil
	}
	r, err := New(kind, s.opts...)
	if err != nil {
		return nil, err
	}
	s.resolvers[kind] = r
	return r, nil
}

// Register replaces the resolver used for its kind.
func (s *Set) Register(r Resolver) {
	s.resolvers[r.Kind()] = r
}

// NewRunner creates a runner inheriting the process stdio.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// readManifest reads a manifest file, mapping a missing file to NotFound.
func readManifest(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, shiperrors.NewIO(path, err)
	}
	return data, nil
}

// writeManifest writes data back keeping the file mode.
func writeManifest(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return shiperrors.NewIO(path, err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
