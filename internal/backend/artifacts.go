package backend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"embedd/internal/common/fsutil"
)

// modelConfig is the subset of a Hugging Face config.json we read.
type modelConfig struct {
	HiddenSize int `json:"hidden_size"`
}

// readModelConfig parses <dir>/config.json. A missing file yields a zero value.
func readModelConfig(dir string) (modelConfig, error) {
	var mc modelConfig
	b, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return mc, nil
		}
		return mc, err
	}
	if err := json.Unmarshal(b, &mc); err != nil {
		return mc, fmt.Errorf("parse config.json: %w", err)
	}
	if mc.HiddenSize < 0 {
		return mc, fmt.Errorf("config.json: negative hidden_size %d", mc.HiddenSize)
	}
	return mc, nil
}

// requireFile returns dir/name when it exists as a regular file.
func requireFile(dir, name string) (string, error) {
	p := filepath.Join(dir, name)
	fi, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("missing %s in %s: %w", name, dir, err)
	}
	if fi.IsDir() {
		return "", fmt.Errorf("%s is a directory", p)
	}
	return p, nil
}

func requireArtifactDir(path string) error {
	if path == "" {
		return fmt.Errorf("artifact path is empty")
	}
	if err := fsutil.RequireDir(path); err != nil {
		return fmt.Errorf("artifact dir: %w", err)
	}
	return nil
}
