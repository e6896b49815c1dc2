// Package registry discovers GGUF model files for the in-process backend.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"modelbridge/internal/common/fsutil"
	"modelbridge/pkg/types"
)

// ErrModelNotFound is returned by Resolve when nothing matches.
var ErrModelNotFound = errors.New("model not found")

// LoadDir scans a directory for *.gguf files and builds a registry from filenames.
// ID is the full filename (including extension); Path is the absolute file path.
// Results are ordered by ID.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !isGGUF(name) {
			continue
		}
		models = append(models, types.Model{
			ID:     name,
			Name:   strings.TrimSuffix(name, filepath.Ext(name)),
			Path:   filepath.Join(abs, name),
			Quant:  quantOf(name),
			Family: familyOf(name),
		})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// Resolve picks the model to load. ref may be a path to a .gguf file, a
// filename in dir, or a filename without extension. An empty ref selects the
// only model in dir and fails when there are several.
func Resolve(dir, ref string) (types.Model, error) {
	if ref != "" && (strings.ContainsRune(ref, os.PathSeparator) || strings.HasPrefix(ref, "~")) {
		p, err := fsutil.ExpandHome(ref)
		if err != nil {
			return types.Model{}, err
		}
		if !fsutil.IsRegularFile(p) {
			return types.Model{}, fmt.Errorf("%w: %s", ErrModelNotFound, ref)
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return types.Model{}, fmt.Errorf("abs path: %w", err)
		}
		name := filepath.Base(abs)
		return types.Model{ID: name, Name: strings.TrimSuffix(name, filepath.Ext(name)), Path: abs, Quant: quantOf(name), Family: familyOf(name)}, nil
	}
	models, err := LoadDir(dir)
	if err != nil {
		return types.Model{}, err
	}
	if ref == "" {
		switch len(models) {
		case 0:
			return types.Model{}, fmt.Errorf("%w: no .gguf files in %s", ErrModelNotFound, dir)
		case 1:
			return models[0], nil
		default:
			return types.Model{}, fmt.Errorf("%d models in %s; set model to one of them", len(models), dir)
		}
	}
	for _, m := range models {
		if m.ID == ref || strings.EqualFold(m.Name, ref) {
			return m, nil
		}
	}
	return types.Model{}, fmt.Errorf("%w: %s in %s", ErrModelNotFound, ref, dir)
}

func isGGUF(name string) bool { return strings.HasSuffix(strings.ToLower(name), ".gguf") }

// quantOf extracts a trailing quantization tag such as Q4_K_M from a filename.
func quantOf(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	i := strings.LastIndexAny(stem, ".-")
	if i < 0 {
		return ""
	}
	tag := stem[i+1:]
	if len(tag) > 1 && (tag[0] == 'Q' || tag[0] == 'q') && tag[1] >= '0' && tag[1] <= '9' {
		return strings.ToUpper(tag)
	}
	return ""
}

// Checked in order; mixtral before mistral, and every *llama variant is llama.
var families = []string{"mixtral", "mistral", "gemma", "qwen", "phi", "falcon", "llama"}

// familyOf guesses the model family from a filename, or "" when unknown.
func familyOf(name string) string {
	lower := strings.ToLower(name)
	for _, f := range families {
		if strings.Contains(lower, f) {
			return f
		}
	}
	return ""
}
