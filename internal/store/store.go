package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/yonca-ai/yonca/internal/logger"
)

var log = logger.ForComponent("store")

// Store persists named record collections as JSON documents in the data
// directory, one file per collection. Every mutation is a whole-collection
// read-modify-write; a single daemon process is assumed (concurrent processes
// sharing a data dir are out of scope).
type Store struct {
	dir   string
	mu    sync.Mutex
	cache map[string][]byte
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{
		dir:   dir,
		cache: make(map[string][]byte),
	}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Load decodes the named collection into v. A missing or empty file leaves v
// at its zero value; corrupt JSON is reported, not silently reset.
func (s *Store) Load(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(name, v)
}

func (s *Store) loadLocked(name string, v any) error {
	data, ok := s.cache[name]
	if !ok {
		raw, err := os.ReadFile(s.path(name))
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		data = raw
		s.cache[name] = raw
	}

	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// Save writes the collection atomically: temp file in the same directory,
// then rename over the target.
func (s *Store) Save(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(name, v)
}

func (s *Store) saveLocked(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+"-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.path(name)); err != nil {
		os.Remove(tmpPath)
		return err
	}

	s.cache[name] = data
	return nil
}

// Update runs one atomic read-modify-write cycle: load into v, apply fn,
// save v back. If fn fails nothing is written.
func (s *Store) Update(name string, v any, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(name, v); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return s.saveLocked(name, v)
}

// Invalidate drops the cached bytes for the collection backing the given
// file path, forcing the next Load to hit disk. Called by the watcher when a
// collection file changes outside the daemon.
func (s *Store) Invalidate(path string) {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	if ext != ".json" {
		return
	}
	name = name[:len(name)-len(ext)]

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache[name]; ok {
		delete(s.cache, name)
		log.Info("collection changed on disk, cache dropped", "collection", name)
	}
}
