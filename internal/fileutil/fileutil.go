// Package fileutil reads and writes the intermediate song files and the load report.
package fileutil

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	tterrors "github.com/lepinkainen/tunetrackr/internal/errors"
	"github.com/lepinkainen/tunetrackr/internal/model"
)

// writeAtomic writes data next to filePath and renames it into place, so a
// reader never sees a half-written file.
func writeAtomic(filePath string, data []byte) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filePath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filePath, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", filePath, err)
	}
	return os.Rename(tmp.Name(), filePath)
}

// WriteJSONFile writes data as an indented JSON document, replacing any existing file.
func WriteJSONFile(data any, filePath string) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	slog.Info("Writing JSON file", "filename", filePath, "bytes", len(jsonData))
	if err := writeAtomic(filePath, append(jsonData, '\n')); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	return nil
}

// WriteSongs writes the songs as one JSON array.
func WriteSongs(songs []model.RawSong, filePath string) error {
	if songs == nil {
		songs = []model.RawSong{}
	}
	return WriteJSONFile(songs, filePath)
}

// ReadSongs reads a JSON array of songs. Missing or malformed files are
// reported as input errors.
func ReadSongs(filePath string) ([]model.RawSong, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, tterrors.NewInputError(filePath, err)
	}

	var songs []model.RawSong
	if err := json.Unmarshal(data, &songs); err != nil {
		return nil, tterrors.NewInputError(filePath, fmt.Errorf("invalid song file: %w", err))
	}
	return songs, nil
}

// WriteYAMLFile writes data as YAML, replacing any existing file.
func WriteYAMLFile(data any, filePath string) error {
	yamlData, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	slog.Info("Writing YAML file", "filename", filePath)
	if err := writeAtomic(filePath, yamlData); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}
	return nil
}
