package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"embedd/internal/common/fsutil"
	"embedd/pkg/types"
)

// ArtifactPath returns the absolute artifact directory for a canonical name
// under root. A leading '~' in root is expanded.
func ArtifactPath(root, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrEmptyName
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid model name %q", name)
	}
	base, err := fsutil.ExpandHome(root)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	return filepath.Join(abs, name), nil
}

// ScanDir lists subdirectories of root that look like model artifacts. Alias
// and Name are both the directory name; Backend is inferred from the files
// present, and directories with no recognizable artifact are skipped.
func ScanDir(root string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(root)
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
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(abs, e.Name())
		kind := inferBackend(dir)
		if kind == "" {
			continue
		}
		models = append(models, types.Model{Alias: e.Name(), Name: e.Name(), Path: dir, Backend: kind})
	}
	return models, nil
}

func inferBackend(dir string) string {
	switch {
	case fsutil.PathExists(filepath.Join(dir, "model.onnx")):
		return "onnx"
	case hasGGUF(dir):
		return "llama"
	case fsutil.PathExists(filepath.Join(dir, "server.json")):
		return "server"
	case fsutil.PathExists(filepath.Join(dir, "config.json")):
		return "hash"
	}
	return ""
}

func hasGGUF(dir string) bool {
	_, err := fsutil.FindBySuffix(dir, ".gguf")
	return err == nil
}
