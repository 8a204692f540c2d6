package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// CurrentVersion is the current settings file format version
	CurrentVersion = 1
)

type fileState struct {
	Version     int               `json:"version"`
	Values      map[string]string `json:"values"`
	LastUpdated time.Time         `json:"lastUpdated"`
}

// File is a Store persisted as a JSON document. Every Set rewrites the file.
type File struct {
	mu     sync.RWMutex
	path   string
	values map[string]string
}

// OpenFile loads the settings file at path, starting empty if it does not exist.
func OpenFile(path string) (*File, error) {
	f := &File{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	if state.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported settings file version %d (current version: %d)", state.Version, CurrentVersion)
	}
	if state.Values != nil {
		f.values = state.Values
	}
	return f, nil
}

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	previous, existed := f.values[key]
	f.values[key] = value
	if err := f.save(); err != nil {
		if existed {
			f.values[key] = previous
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

func (f *File) List(_ context.Context, prefix string) (map[string]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return filterPrefix(f.values, prefix), nil
}

func (f *File) Close() error {
	return nil
}

// save atomically writes the values to disk: write to temp file, then rename.
// Callers hold the write lock.
func (f *File) save() error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(fileState{
		Version:     CurrentVersion,
		Values:      f.values,
		LastUpdated: time.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	tempFile := f.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, f.path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
