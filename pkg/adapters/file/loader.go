// Package file loads graph documents from a directory of JSON or YAML files.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/lettergraph/pkg/domain"
)

var extensions = []string{".json", ".yaml", ".yml"}

// Loader implements ports.GraphLoader over the local filesystem.
// The graph id is the file path relative to BasePath without its extension.
type Loader struct {
	BasePath string
}

// New creates a new Loader with the given base path.
// If basePath is empty, it defaults to "graphs".
func New(basePath string) *Loader {
	if basePath == "" {
		basePath = "graphs"
	}
	return &Loader{BasePath: basePath}
}

// Load reads <id>.json, <id>.yaml or <id>.yml, in that order.
func (l *Loader) Load(ctx context.Context, graphID string) (*domain.GraphDocument, error) {
	if graphID == "" || !filepath.IsLocal(graphID) {
		return nil, fmt.Errorf("%w: invalid graph id %q", domain.ErrGraphNotFound, graphID)
	}
	for _, ext := range extensions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(l.BasePath, filepath.FromSlash(graphID)+ext)
		doc, err := ReadDocument(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if doc.ID == "" {
			doc.ID = graphID
		}
		return doc, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, graphID)
}

// List walks BasePath and returns the ids of all graph files, sorted.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := filepath.WalkDir(l.BasePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !slices.Contains(extensions, filepath.Ext(path)) {
			return nil
		}
		rel, err := filepath.Rel(l.BasePath, path)
		if err != nil {
			return err
		}
		id := filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}

// ReadDocument reads a single graph file. The format follows the extension;
// anything other than .yaml/.yml is read as JSON.
func ReadDocument(path string) (*domain.GraphDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return doc, nil
}

// Decode parses a graph document. YAML is converted through JSON so both
// formats yield the same value types (numbers are float64).
func Decode(data []byte, ext string) (*domain.GraphDocument, error) {
	if ext == ".yaml" || ext == ".yml" {
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		converted, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		data = converted
	}
	var doc domain.GraphDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
