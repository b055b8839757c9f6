//go:build integration

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"embedd/pkg/types"
)

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func buildBinary(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "embedd")
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("go build failed: %v\n%s", err, out)
	}
	return bin
}

func TestBlackbox_ServeFlow(t *testing.T) {
	bin := buildBinary(t)
	cfg := writeModelsConfig(t)
	port := findFreePort(t)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)

	cmd := exec.Command(bin, "--config", cfg, "serve", "--addr", fmt.Sprintf("127.0.0.1:%d", port))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { _ = cmd.Process.Kill() })

	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(base + "/readyz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become ready in time")
		}
		time.Sleep(50 * time.Millisecond)
	}

	resp, err := http.Post(base+"/embedding", "application/json", bytes.NewBufferString(`{"contexts":["hi"],"model_name":"m1"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	var er types.EmbeddingResponse
	if err := json.Unmarshal(body, &er); err != nil || resp.StatusCode != http.StatusOK || len(er.EmbeddingRes) != 1 {
		t.Fatalf("embedding: code=%d body=%s err=%v", resp.StatusCode, body, err)
	}

	resp, err = http.Get(base + "/get_available_models")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var av map[string]bool
	_ = json.NewDecoder(resp.Body).Decode(&av)
	resp.Body.Close()
	if !av["model-one"] || av["model-two"] {
		t.Fatalf("available=%v", av)
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("signal: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("server exit: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
