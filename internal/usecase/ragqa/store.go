package ragqa

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"qsurvey/internal/errs"
)

// DocumentStore keeps reference documents as plain text files under one
// directory. Names are flattened to their base so callers cannot escape it.
type DocumentStore struct {
	dir string
}

func NewDocumentStore(dir string) (*DocumentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrapf(err, "create documents dir %s", dir)
	}
	return &DocumentStore{dir: dir}, nil
}

func (s *DocumentStore) Put(name string, content []byte) error {
	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return errs.Wrapf(err, "write document %s", name)
	}
	return nil
}

func (s *DocumentStore) Read(name string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil {
		return "", errs.Wrapf(err, "read document %s", name)
	}
	return string(raw), nil
}

func (s *DocumentStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errs.Wrapf(err, "list documents dir %s", s.dir)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *DocumentStore) Delete(name string) error {
	if err := os.Remove(filepath.Join(s.dir, filepath.Base(name))); err != nil {
		return errs.Wrapf(err, "delete document %s", name)
	}
	return nil
}
