package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const indexFile = "index.json"

// fileIndex is the on-disk catalogue of saved records.
type fileIndex struct {
	States map[string]Meta `json:"states"`
	Chunks map[string]Meta `json:"chunks"`
}

func (x *fileIndex) of(kind Kind) map[string]Meta {
	if kind == KindChunk {
		return x.Chunks
	}
	return x.States
}

// FileStore keeps each record as a JSON file under dir/states or
// dir/chunks, with dir/index.json listing them. Safe for concurrent use
// within one process.
type FileStore struct {
	records

	mu    sync.Mutex
	dir   string
	index fileIndex
}

var _ Store = (*FileStore)(nil)

// NewFileStore opens or creates a file store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store: directory is required")
	}
	for _, sub := range []string{"states", "chunks"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("file store: creating %s: %w", sub, err)
		}
	}

	s := &FileStore{
		dir: dir,
		index: fileIndex{
			States: make(map[string]Meta),
			Chunks: make(map[string]Meta),
		},
	}
	s.records = records{b: s, now: time.Now}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("file store: reading index: %w", err)
	}
	var idx fileIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("file store: parsing index: %w", err)
	}
	if idx.States != nil {
		s.index.States = idx.States
	}
	if idx.Chunks != nil {
		s.index.Chunks = idx.Chunks
	}
	return nil
}

// writeIndex replaces the index file atomically. Callers hold mu.
func (s *FileStore) writeIndex() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.dir, indexFile), data)
}

func (s *FileStore) path(kind Kind, id string) string {
	return filepath.Join(s.dir, string(kind)+"s", id+".json")
}

func (s *FileStore) put(_ context.Context, kind Kind, m Meta, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFileAtomic(s.path(kind, m.ID), data); err != nil {
		return err
	}
	s.index.of(kind)[m.ID] = m
	return s.writeIndex()
}

func (s *FileStore) get(_ context.Context, kind Kind, id string) ([]byte, error) {
	s.mu.Lock()
	_, ok := s.index.of(kind)[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(s.path(kind, id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *FileStore) remove(_ context.Context, kind Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index.of(kind)[id]; !ok {
		return ErrNotFound
	}
	delete(s.index.of(kind), id)
	if err := os.Remove(s.path(kind, id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return s.writeIndex()
}

func (s *FileStore) list(_ context.Context, kind Kind) ([]Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	metas := make([]Meta, 0, len(s.index.of(kind)))
	for _, m := range s.index.of(kind) {
		metas = append(metas, m)
	}
	return metas, nil
}

// Close is a no-op; every write is flushed immediately.
func (s *FileStore) Close() error { return nil }

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
