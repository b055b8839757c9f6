package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"embedd/internal/config"
	"embedd/pkg/types"
)

// writeModelsConfig lays out <dir>/model/model-one as a hash model and writes
// a YAML config registering it as m1 plus a missing model m2.
func writeModelsConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	md := filepath.Join(dir, "model", "model-one")
	if err := os.MkdirAll(md, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(md, "config.json"), []byte(`{"hidden_size": 12}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := fmt.Sprintf(`models_dir: %s
log:
  level: "off"
models:
  - alias: m1
    name: model-one
    backend: hash
  - alias: m2
    name: model-two
    backend: hash
`, filepath.Join(dir, "model"))
	p := filepath.Join(dir, "embedd.yaml")
	if err := os.WriteFile(p, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := buildRootCmd(&options{})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "embedd ") {
		t.Fatalf("out=%q", out)
	}
}

func TestModelsCommand_JSON(t *testing.T) {
	cfg := writeModelsConfig(t)
	out, err := runCLI(t, "--config", cfg, "models", "--json")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	var rows []modelRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("json: %v out=%q", err, out)
	}
	if len(rows) != 2 || !rows[0].Present || rows[1].Present {
		t.Fatalf("rows=%+v", rows)
	}
	if filepath.Base(rows[1].Path) != "model-two" {
		t.Fatalf("path=%s", rows[1].Path)
	}
}

func TestModelsCommand_Table(t *testing.T) {
	cfg := writeModelsConfig(t)
	out, err := runCLI(t, "--config", cfg, "models")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if !strings.Contains(out, "ALIAS") || !strings.Contains(out, "model-one") {
		t.Fatalf("out=%q", out)
	}
}

func TestEncodeCommand(t *testing.T) {
	cfg := writeModelsConfig(t)
	out, err := runCLI(t, "--config", cfg, "encode", "--model", "m1", "hello", "world")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var resp types.EmbeddingResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("json: %v out=%q", err, out)
	}
	if resp.Status != 200 || len(resp.EmbeddingRes) != 2 || len(resp.EmbeddingRes[0]) != 12 {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestEncodeCommand_Errors(t *testing.T) {
	cfg := writeModelsConfig(t)
	if _, err := runCLI(t, "--config", cfg, "encode", "--model", "nope", "x"); err == nil || !strings.Contains(err.Error(), "unknown model") {
		t.Fatalf("expected unknown model error, got %v", err)
	}
	if _, err := runCLI(t, "--config", cfg, "encode", "--model", "m2", "x"); err == nil || !strings.Contains(err.Error(), "failed to load") {
		t.Fatalf("expected load failure, got %v", err)
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	cfgPath := writeModelsConfig(t)
	o := &options{}
	root := buildRootCmd(o)
	serve, _, err := root.Find([]string{"serve"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	var got config.Config
	serve.RunE = func(cmd *cobra.Command, args []string) error {
		got, err = o.loadConfig(cmd)
		return err
	}
	root.SetArgs([]string{"--config", cfgPath, "serve", "--addr", ":9999", "--cors-origins", "https://a.example, https://b.example"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got.Addr != ":9999" {
		t.Fatalf("addr=%q", got.Addr)
	}
	if !got.CORS.Enabled || len(got.CORS.Origins) != 2 {
		t.Fatalf("cors=%+v", got.CORS)
	}
	// Unset flags keep file values, then defaults.
	if !strings.HasSuffix(got.ModelsDir, "model") || got.Log.Level != "off" || got.LoadPolicy != "isolate" {
		t.Fatalf("cfg=%+v", got)
	}
	if len(got.Models) != 2 {
		t.Fatalf("models=%+v", got.Models)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	cfgPath := writeModelsConfig(t)
	t.Setenv("EMBEDD_DEVICE", "cpu")
	o := &options{}
	root := buildRootCmd(o)
	models, _, err := root.Find([]string{"models"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	var got config.Config
	models.RunE = func(cmd *cobra.Command, args []string) error {
		got, err = o.loadConfig(cmd)
		return err
	}
	root.SetArgs([]string{"--config", cfgPath, "models"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got.Device != "cpu" {
		t.Fatalf("device=%q", got.Device)
	}
}

func TestLoadConfig_InvalidFlag(t *testing.T) {
	_, err := runCLI(t, "--device", "tpu", "models")
	if err == nil || !strings.Contains(err.Error(), "invalid device") {
		t.Fatalf("expected invalid device, got %v", err)
	}
}
