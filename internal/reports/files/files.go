// Package files serves report files from a local directory.
package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"transstats/internal/core"
	"transstats/internal/reports"
)

// Source reads <dir>/<fileID> for every fetch.
type Source struct {
	dir string
}

var (
	_ reports.Fetcher  = (*Source)(nil)
	_ reports.Importer = (*Source)(nil)
)

func New(dir string) *Source {
	return &Source{dir: dir}
}

func (s *Source) Fetch(ctx context.Context, fileID string) (core.RawReport, error) {
	if err := ctx.Err(); err != nil {
		return core.RawReport{}, err
	}
	path, err := s.resolve(fileID)
	if err != nil {
		return core.RawReport{}, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.RawReport{}, fmt.Errorf("%w: %s", reports.ErrNotFound, fileID)
	}
	if err != nil {
		return core.RawReport{}, fmt.Errorf("read report %s: %w", fileID, err)
	}

	r, err := reports.Decode(data)
	if err != nil {
		return core.RawReport{}, fmt.Errorf("decode %s: %w", fileID, err)
	}
	return r, nil
}

// Import validates body and writes it to <dir>/<fileID>.
func (s *Source) Import(_ context.Context, fileID string, body []byte) error {
	if err := reports.Validate(body); err != nil {
		return fmt.Errorf("import %s: %w", fileID, err)
	}
	path, err := s.resolve(fileID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", fileID, err)
	}
	return nil
}

// List returns the report files present in the directory, sorted by name.
func (s *Source) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list report directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

// resolve rejects identifiers that would escape the directory.
func (s *Source) resolve(fileID string) (string, error) {
	if fileID == "" || fileID != filepath.Base(fileID) || strings.HasPrefix(fileID, ".") {
		return "", fmt.Errorf("%w: illegal file id %q", reports.ErrNotFound, fileID)
	}
	return filepath.Join(s.dir, fileID), nil
}
