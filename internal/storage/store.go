// Package storage is the filesystem implementation of host.Storage. Paths
// are slash-separated and relative to a root directory; document metadata
// is parsed from YAML frontmatter and cached until the file changes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/zjrosen/panesync/internal/cachemanager"
	"github.com/zjrosen/panesync/internal/config"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/log"
)

// ErrOutsideRoot is returned for paths that escape the root.
var ErrOutsideRoot = errors.New("path outside storage root")

// Store reads and writes documents under a root directory.
type Store struct {
	root string
	meta *cachemanager.ReadThroughCache[string, host.Metadata]
}

var _ host.Storage = (*Store)(nil)

// New opens a store rooted at cfg.Root, which must be an existing directory.
func New(cfg config.StorageConfig) (*Store, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving storage root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening storage root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage root %s is not a directory", root)
	}

	ttl := cfg.MetadataTTL
	if ttl <= 0 {
		ttl = cachemanager.DefaultExpiration
	}
	s := &Store{root: root}
	cache := cachemanager.NewInMemoryCacheManager[string, host.Metadata]("metadata", ttl, cachemanager.DefaultCleanupInterval)
	s.meta = cachemanager.NewReadThroughCache[string, host.Metadata](cache, s.loadMetadata, ttl, false)
	return s, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if path == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, path)
	}
	return filepath.Join(s.root, clean), nil
}

// Read returns the contents of path.
func (s *Store) Read(_ context.Context, path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full) //nolint:gosec // G304: resolved under root
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Write replaces path atomically, creating parent directories.
func (s *Store) Write(ctx context.Context, path string, data []byte) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0750); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".panesync-*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	s.Invalidate(ctx, path)
	return nil
}

// Rename moves from to to, creating parent directories.
func (s *Store) Rename(ctx context.Context, from, to string) error {
	src, err := s.resolve(from)
	if err != nil {
		return err
	}
	dst, err := s.resolve(to)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return fmt.Errorf("creating directory for %s: %w", to, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", from, to, err)
	}
	s.Invalidate(ctx, from, to)
	return nil
}

// Delete removes path.
func (s *Store) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	s.Invalidate(ctx, path)
	return nil
}

// Metadata returns path's frontmatter metadata, cached until the file is
// written, renamed or invalidated.
func (s *Store) Metadata(ctx context.Context, path string) (host.Metadata, error) {
	return s.meta.GetWithRefresh(ctx, path)
}

// IsCanvas reports whether path carries the canvas-default marker. Missing
// or unreadable files are not canvas documents.
func (s *Store) IsCanvas(ctx context.Context, path string) bool {
	md, err := s.Metadata(ctx, path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.WarnErr(log.CatFS, "Metadata lookup failed", err, "path", path)
		}
		return false
	}
	return md.CanvasDefault
}

// Invalidate drops cached metadata for paths.
func (s *Store) Invalidate(ctx context.Context, paths ...string) {
	s.meta.Invalidate(ctx, paths...)
}

func (s *Store) loadMetadata(ctx context.Context, path string) (host.Metadata, error) {
	data, err := s.Read(ctx, path)
	if err != nil {
		return host.Metadata{}, err
	}
	md, err := ParseMetadata(data)
	if err != nil {
		return host.Metadata{}, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug(log.CatCache, "Metadata loaded", "path", path, "canvas", md.CanvasDefault)
	return md, nil
}

// List returns every markdown document below the root, sorted. Hidden
// directories are skipped.
func (s *Store) List(_ context.Context) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.root, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if full != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(full) != ".md" {
			return nil
		}
		rel, err := filepath.Rel(s.root, full)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	slices.Sort(paths)
	return paths, nil
}
