package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// KindServer talks to a running llama.cpp (or any OpenAI-compatible) server
// over HTTP. Its artifact directory holds a server.json instead of weights.
const KindServer Kind = "server"

func init() { Register(KindServer, loadServer) }

// serverConfig is the contents of <artifact dir>/server.json.
type serverConfig struct {
	BaseURL string `json:"base_url"`
	// Model is sent as the request's model field; empty lets the server pick.
	Model string `json:"model"`
	// APIKeyEnv names an environment variable holding a bearer token.
	APIKeyEnv        string `json:"api_key_env"`
	TimeoutMS        int    `json:"timeout_ms"`
	ConnectTimeoutMS int    `json:"connect_timeout_ms"`
}

type serverBackend struct {
	baseURL    string
	model      string
	apiKey     string
	reqTimeout time.Duration
	client     *http.Client
	dims       int
	normalize  bool
	log        zerolog.Logger
}

type embeddingsRequest struct {
	Model string   `json:"model,omitempty"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func loadServer(ctx context.Context, spec Spec) (Backend, error) {
	if err := requireArtifactDir(spec.Path); err != nil {
		return nil, err
	}
	p, err := requireFile(spec.Path, "server.json")
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	var sc serverConfig
	if err := json.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("parse server.json: %w", err)
	}
	if strings.TrimSpace(sc.BaseURL) == "" {
		return nil, errors.New("server.json: base_url is required")
	}
	b := newServerBackend(sc, spec)
	if sc.APIKeyEnv != "" {
		b.apiKey = os.Getenv(sc.APIKeyEnv)
	}

	// An unreachable server fails the load here rather than on first request.
	got, err := measureDimensions(ctx, b, spec.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", b.baseURL, err)
	}
	b.dims = got
	spec.Logger.Debug().Str("base_url", b.baseURL).Int("dims", got).Msg("embedding server ready")
	return b, nil
}

func newServerBackend(sc serverConfig, spec Spec) *serverBackend {
	connect := time.Duration(sc.ConnectTimeoutMS) * time.Millisecond
	if connect <= 0 {
		connect = 5 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connect,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Deadlines come from the request context.
	return &serverBackend{
		baseURL:    strings.TrimRight(sc.BaseURL, "/"),
		model:      sc.Model,
		reqTimeout: time.Duration(sc.TimeoutMS) * time.Millisecond,
		client:     &http.Client{Transport: tr},
		normalize:  spec.Normalize,
		log:        spec.Logger,
	}
}

func (s *serverBackend) Dimensions() int { return s.dims }

func (s *serverBackend) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *serverBackend) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if s.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.reqTimeout)
		defer cancel()
	}
	body, err := json.Marshal(embeddingsRequest{Model: s.model, Input: texts})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embedding server http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	var er embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(er.Data) != len(texts) {
		return nil, fmt.Errorf("embedding server returned %d vectors for %d texts", len(er.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range er.Data {
		if d.Index < 0 || d.Index >= len(out) || out[d.Index] != nil {
			return nil, fmt.Errorf("embedding server returned bad index %d", d.Index)
		}
		if s.dims > 0 && len(d.Embedding) != s.dims {
			return nil, fmt.Errorf("embedding server returned %d dims, want %d", len(d.Embedding), s.dims)
		}
		if len(d.Embedding) == 0 {
			return nil, errors.New("embedding server returned an empty vector")
		}
		if s.normalize {
			l2Normalize(d.Embedding)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
