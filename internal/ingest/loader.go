// ABOUTME: Loads ingestion documents from JSON or YAML files.
// ABOUTME: Resolves the bundled sample file when the requested path does not exist.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/2389-research/scholar/internal/models"
)

// DefaultSamplePath is the sample document set shipped with the repository.
const DefaultSamplePath = "data/sample_academic_sources.json"

// LoadDocuments reads an array of documents. Files ending in .json, or whose first
// non-space byte is '[', are decoded as JSON; everything else as YAML.
func LoadDocuments(path string) ([]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	return ParseDocuments(data, strings.EqualFold(filepath.Ext(path), ".json"))
}

// ParseDocuments decodes an array of documents from data.
func ParseDocuments(data []byte, isJSON bool) ([]models.Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []models.Document{}, nil
	}

	var docs []models.Document
	if isJSON || trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("failed to parse JSON documents: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("failed to parse YAML documents: %w", err)
		}
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}

// ResolvePath returns path unchanged unless it is empty or DefaultSamplePath. The sample
// file is then looked up in the working directory and beside the executable.
func ResolvePath(path string) string {
	if path == "" {
		path = DefaultSamplePath
	}
	if path != DefaultSamplePath || fileExists(path) {
		return path
	}

	var candidates []string
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, DefaultSamplePath),
			filepath.Join(dir, "..", DefaultSamplePath),
		)
	}
	for _, c := range candidates {
		if fileExists(c) {
			return c
		}
	}
	return path
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
