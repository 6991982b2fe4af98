package fixture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// document is the top level of the JSON database. Collections stay raw so
// records the suite does not touch are written back byte for byte.
type document map[string]jsoniter.RawMessage

// FileStore edits the JSON document the development backend serves from.
type FileStore struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

// NewFileStore creates a store over the JSON document at path. A leading ~
// is expanded to the home directory.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand fixture path %q: %w", path, err)
	}
	if _, err := os.Stat(expanded); err != nil {
		return nil, fmt.Errorf("fixture document unavailable: %w", err)
	}
	return &FileStore{path: expanded, log: logger.Named("fixture.file")}, nil
}

// Path is the expanded location of the document.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) ClearCollections(ctx context.Context, names ...string) error {
	return s.update(ctx, func(doc document) error {
		for _, name := range names {
			doc[name] = jsoniter.RawMessage("[]")
		}
		s.log.Info("Cleared collections.", zap.Strings("collections", names))
		return nil
	})
}

func (s *FileStore) RemoveTestFilms(ctx context.Context, marker string) error {
	needle := strings.ToLower(marker)
	return s.update(ctx, func(doc document) error {
		removed, err := filterCollection(doc, "films", func(r record) bool {
			return !strings.Contains(strings.ToLower(r.Title), needle)
		})
		if err != nil {
			return err
		}
		s.log.Info("Removed test films.", zap.String("marker", marker), zap.Int("removed", removed))
		return nil
	})
}

func (s *FileStore) RemoveUser(ctx context.Context, email string) error {
	return s.update(ctx, func(doc document) error {
		removed, err := filterCollection(doc, "users", func(r record) bool {
			return !strings.EqualFold(r.Email, email)
		})
		if err != nil {
			return err
		}
		s.log.Info("Removed user.", zap.String("email", email), zap.Int("removed", removed))
		return nil
	})
}

func (s *FileStore) Close() error { return nil }

// record is the part of a film or user the filters look at.
type record struct {
	Title string `json:"title"`
	Email string `json:"email"`
}

// filterCollection keeps the entries of doc[name] for which keep is true and
// reports how many were dropped. A missing collection is left alone.
func filterCollection(doc document, name string, keep func(record) bool) (int, error) {
	raw, ok := doc[name]
	if !ok {
		return 0, nil
	}
	var entries []jsoniter.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return 0, fmt.Errorf("collection %q is not an array: %w", name, err)
	}

	kept := make([]jsoniter.RawMessage, 0, len(entries))
	for i, e := range entries {
		var r record
		if err := json.Unmarshal(e, &r); err != nil {
			return 0, fmt.Errorf("collection %q entry %d: %w", name, i, err)
		}
		if keep(r) {
			kept = append(kept, e)
		}
	}

	out, err := json.Marshal(kept)
	if err != nil {
		return 0, err
	}
	doc[name] = out
	return len(entries) - len(kept), nil
}

// update applies fn to the document and writes it back through a temporary
// file so a crash never leaves a half-written database.
func (s *FileStore) update(ctx context.Context, fn func(document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("failed to read fixture document: %w", err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read fixture document: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse fixture document: %w", err)
	}
	if doc == nil {
		doc = document{}
	}
	if err := fn(doc); err != nil {
		return err
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode fixture document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".db-*.json")
	if err != nil {
		return fmt.Errorf("failed to stage fixture document: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(append(out, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to stage fixture document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
