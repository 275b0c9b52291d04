package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// JSONFile persists a single value of type T as an indented JSON document.
// Writes go to a temp file first and are renamed into place.
type JSONFile[T any] struct {
	mu       sync.Mutex
	filePath string
}

func NewJSONFile[T any](dataDir, filename string) (*JSONFile[T], error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	return &JSONFile[T]{filePath: filepath.Join(dataDir, filename)}, nil
}

// Load returns the zero value of T when the file does not exist yet.
func (f *JSONFile[T]) Load() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out T
	file, err := os.Open(f.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func (f *JSONFile[T]) Save(v T) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tempFile := f.filePath + ".tmp"
	file, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		file.Close()
		os.Remove(tempFile)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}
	return os.Rename(tempFile, f.filePath)
}
