package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"embedd/internal/dispatch"
	"embedd/internal/httpapi"
	"embedd/internal/registry"
	"embedd/pkg/types"
)

// newLoadedService registers one loadable hash model (m1/model-one) and one
// whose artifacts are missing (m2/model-two), then runs the load pass.
func newLoadedService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"hidden_size": 8}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	reg := registry.New(registry.Options{Device: "cpu", Logger: zerolog.Nop()})
	if err := reg.Register("m1", "model-one", dir); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("m2", "model-two", filepath.Join(dir, "missing")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.LoadAll(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close(context.Background()) })
	disp := dispatch.New(dispatch.RegistryResolver{Registry: reg}, dispatch.Options{Logger: zerolog.Nop()})
	return New(reg, disp)
}

func TestStatus_ReportsPartialFailure(t *testing.T) {
	s := newLoadedService(t)
	s.started = time.Unix(1000, 0)
	s.now = func() time.Time { return time.Unix(1060, 0) }

	st := s.Status()
	if st.Loaded != 1 || st.Failed != 1 || !st.Ready {
		t.Fatalf("unexpected counts: %+v", st)
	}
	if st.UptimeSeconds != 60 || st.ServerTimeUnix != 1060 {
		t.Fatalf("uptime=%d time=%d", st.UptimeSeconds, st.ServerTimeUnix)
	}
	if len(st.Models) != 2 || st.Models[0].Alias != "m1" || st.Models[1].Alias != "m2" {
		t.Fatalf("models out of order: %+v", st.Models)
	}
	m1, m2 := st.Models[0], st.Models[1]
	if !m1.Loaded || m1.Dimensions != 8 || m1.Device != "cpu" || m1.MaxQueueDepth == 0 {
		t.Fatalf("m1: %+v", m1)
	}
	if m2.Loaded || m2.LastError == "" {
		t.Fatalf("m2 should carry its load error: %+v", m2)
	}
}

func TestAvailableModelsAndList(t *testing.T) {
	s := newLoadedService(t)
	av := s.AvailableModels()
	if !av["model-one"] || av["model-two"] || len(av) != 2 {
		t.Fatalf("available=%v", av)
	}
	if ms := s.ListModels(); len(ms) != 2 || ms[0].Name != "model-one" {
		t.Fatalf("models=%+v", ms)
	}
	if !s.Ready() {
		t.Fatal("service should be ready with one model loaded")
	}
}

// End to end over HTTP with the hash backend.
func TestHTTP_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(httpapi.NewMux(newLoadedService(t), httpapi.Options{}))
	defer srv.Close()

	post := func(body string) (int, types.EmbeddingResponse) {
		t.Helper()
		resp, err := http.Post(srv.URL+"/embedding", "application/json", bytes.NewBufferString(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		defer resp.Body.Close()
		var out types.EmbeddingResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp.StatusCode, out
	}

	code, out := post(`{"contexts":["hello world","second"],"model_name":"m1"}`)
	if code != http.StatusOK || out.Status != 200 || len(out.EmbeddingRes) != 2 || len(out.EmbeddingRes[0]) != 8 {
		t.Fatalf("code=%d out=%+v", code, out)
	}

	// Canonical name works too and yields the same vector.
	_, byName := post(`{"contexts":"hello world","model_name":"model-one"}`)
	if len(byName.EmbeddingRes) != 1 {
		t.Fatalf("byName=%+v", byName)
	}
	for i, v := range byName.EmbeddingRes[0] {
		if v != out.EmbeddingRes[0][i] {
			t.Fatalf("alias and canonical name disagree at %d", i)
		}
	}

	code, out = post(`{"contexts":["x"],"model_name":"m2"}`)
	if code != http.StatusBadRequest || out.Status != 400 || len(out.EmbeddingRes) != 0 {
		t.Fatalf("failed model: code=%d out=%+v", code, out)
	}
	code, _ = post(`{"contexts":[],"model_name":"m1"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("empty contexts: code=%d", code)
	}

	resp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz=%d", resp.StatusCode)
	}
}
